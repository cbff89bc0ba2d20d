package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/commerce-core/pkg/config"
	"github.com/angelmondragon/commerce-core/pkg/logger"
)

func TestInitDisabledReturnsNoopShutdown(t *testing.T) {
	shutdownFn := Init(context.Background(), logger.Nop(), config.TracingConfig{Enabled: false}, "test")
	require.NotNil(t, shutdownFn)
	require.NoError(t, shutdownFn(context.Background()))
}

func TestStartAndEndWithNoopProvider(t *testing.T) {
	ctx, span := Start(context.Background(), "producttypes.save")
	require.NotNil(t, ctx)
	End(span, errors.New("boom"))
	End(span, nil)
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
}
