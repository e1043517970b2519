package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"prod", "dev", ""} {
		l, err := New(mode, "info")
		require.NoError(t, err)
		require.NotNil(t, l.SugaredLogger)
	}
	_, err := New("dev", "loud")
	require.Error(t, err)
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}
	l.With("request_id", "abc").Info("handled", "status", 200)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "handled", entries[0].Message)
	fields := entries[0].ContextMap()
	require.Equal(t, "abc", fields["request_id"])
	require.EqualValues(t, 200, fields["status"])
}
