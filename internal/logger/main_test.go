package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseLog() Log {
	return Log{
		LogLevel:    "info",
		AppName:     "genovault",
		ServiceName: "genovault-api",
		Console:     Console{Enabled: true},
	}
}

func TestInit(t *testing.T) {
	require.NoError(t, Init(baseLog()))
}

func TestInit_UnknownLevel(t *testing.T) {
	cfg := baseLog()
	cfg.LogLevel = "chatty"

	assert.Error(t, Init(cfg))
}

func TestInit_MissingNames(t *testing.T) {
	cfg := baseLog()
	cfg.ServiceName = ""
	assert.ErrorIs(t, Init(cfg), ErrServiceNameIsEmpty)

	cfg = baseLog()
	cfg.AppName = ""
	assert.ErrorIs(t, Init(cfg), ErrAppNameIsEmpty)
}

func TestLevelWriter_Split(t *testing.T) {
	var info, warn, errBuf, trace bytes.Buffer

	lw := levelWriter{
		info:  &info,
		warn:  &warn,
		err:   &errBuf,
		trace: &trace,
	}

	_, err := lw.WriteLevel(zerolog.InfoLevel, []byte("i"))
	require.NoError(t, err)
	_, err = lw.WriteLevel(zerolog.WarnLevel, []byte("w"))
	require.NoError(t, err)
	_, err = lw.WriteLevel(zerolog.ErrorLevel, []byte("e"))
	require.NoError(t, err)
	_, err = lw.WriteLevel(zerolog.TraceLevel, []byte("t"))
	require.NoError(t, err)

	assert.Equal(t, "i", info.String())
	assert.Equal(t, "w", warn.String())
	assert.Equal(t, "e", errBuf.String())
	assert.Equal(t, "t", trace.String())
}

func TestLevelWriter_Disabled(t *testing.T) {
	lw := levelWriter{}

	n, err := lw.WriteLevel(zerolog.Disabled, []byte("nothing"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
