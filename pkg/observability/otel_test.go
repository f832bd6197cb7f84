package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSetup_WithoutEndpoint(t *testing.T) {
	tel, err := Setup(context.Background(), Conf{Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, tel.Logger)
	require.NotNil(t, tel.Tracer)
	assert.True(t, tel.Logger.Core().Enabled(zapcore.DebugLevel))

	_, span := tel.Tracer.Start(context.Background(), "noop")
	span.End()
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	tel, err := Setup(context.Background(), Conf{Level: "loud"})
	require.NoError(t, err)
	assert.False(t, tel.Logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, tel.Logger.Core().Enabled(zapcore.InfoLevel))
}
