package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewFromConfig(t *testing.T) {
	log, err := New(Config{Level: "debug", Encoding: "json"})
	require.NoError(t, err)
	assert.True(t, log.IsDebug())

	log.SetLevel(zapcore.InfoLevel)
	assert.False(t, log.IsDebug())

	_, err = New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())
	assert.NoError(t, Config{Level: "warn"}.Validate())
	assert.Error(t, Config{Level: "loud"}.Validate())
	assert.Error(t, Config{Level: "info", Encoding: "xml"}.Validate())
}

func TestNamed(t *testing.T) {
	log := NewTestLogger()
	sub := log.Named("book").Named("BTCUSDT")
	assert.Equal(t, "book.BTCUSDT", sub.GetName())
	assert.False(t, sub.IsDebug())
}
