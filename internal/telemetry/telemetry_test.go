package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabled(t *testing.T) {
	tel, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.Nil(t, tel.tracerProvider)
	assert.Nil(t, tel.meterProvider)
	assert.Nil(t, tel.loggerProvider)
	assert.Nil(t, tel.LoggerProvider(), "disabled telemetry must hand out a true nil interface")
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNewRequiresServiceName(t *testing.T) {
	_, err := New(context.Background(), Config{
		Enabled:  true,
		Endpoint: "localhost:4318",
	})
	assert.Error(t, err)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{
		Enabled:     true,
		ServiceName: "optimd",
	})
	assert.Error(t, err)
}

func TestShutdownNil(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("collector:4318"))
}
