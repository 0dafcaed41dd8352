package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WarnLevel)
	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "[WARN] shown 2")

	l.SetLevel(DebugLevel)
	l.WithSource("worker-1").Debugf("now visible")
	require.Contains(t, buf.String(), "[DEBUG] worker-1: now visible")
}

func TestLoggerSink(t *testing.T) {
	var forwarded []string
	l := Discard()
	l.SetSink(func(level int, source string, message string) {
		forwarded = append(forwarded, LogLevelToString(level)+" "+source+" "+message)
	})
	w := l.WithSource("w")
	w.Infof("not forwarded")
	w.Errorf("failed %s", "chunk")
	require.Equal(t, []string{"ERROR w failed chunk"}, forwarded)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("ERROR")
	require.Nil(t, err)
	require.Equal(t, ErrorLevel, level)
	_, err = ParseLevel("LOUD")
	require.NotNil(t, err)
}
