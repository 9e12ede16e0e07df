package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test")
	assert.False(t, called)
}

func TestLogf_Default(t *testing.T) {
	require.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}

func TestZapLogf(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logf := ZapLogf(zap.New(core).Sugar())

	logf("window %d skipped: %s", 3, "insufficient data")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "window 3 skipped: insufficient data", entries[0].Message)
}

func TestNewZapLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		l, err := NewZapLogger(debug)
		require.NoError(t, err)
		require.NotNil(t, l)
	}
}
