package rbvlog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLevelFilteringDropsBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)
	l.now = fixedClock(time.Unix(0, 0))

	l.Infof("ignored")
	l.Debugf("ignored")
	assert.Empty(t, buf.String())

	l.Warnf("seen %d", 1)
	assert.Contains(t, buf.String(), "[WARN] seen 1")
}

func TestEachLineCarriesItsLevelTag(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug)
	l.now = fixedClock(time.Unix(0, 0))

	l.Debugf("a")
	l.Infof("b")
	l.Errorf("c")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require := assert.New(t)
	require.Len(lines, 3)
	require.Contains(lines[0], "[DEBUG] a")
	require.Contains(lines[1], "[INFO] b")
	require.Contains(lines[2], "[ERROR] c")
}

func TestNilLoggerIsInert(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Infof("noop") })
}
