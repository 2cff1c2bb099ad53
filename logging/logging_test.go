package logging

import (
	"bytes"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/require"
)

func TestLogLevelToString(t *testing.T) {
	require.Equal(t, "TRACE", LogLevelToString(TraceLevel))
	require.Equal(t, "INFO", LogLevelToString(InfoLevel))
	require.Equal(t, "FATAL", LogLevelToString(FatalLevel))
}

func TestNewLoggerFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, WarnLevel)
	require.Nil(t, level.Info(logger).Log("msg", "hidden"))
	require.Nil(t, level.Warn(logger).Log("msg", "shown"))
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "msg=shown")
}

func TestNewLoggerReportsItsLevel(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, ErrorLevel)
	require.Contains(t, buf.String(), "msg=\"logging started\" minLevel=ERROR")
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
	require.Nil(t, OrNop(nil).Log("msg", "discarded"))
}
