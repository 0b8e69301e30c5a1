package service

import (
	"context"
	"testing"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/dedupe"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExtractorWithoutCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = ""

	ext, err := BuildExtractor(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)

	facts, err := ext.Extract(context.Background(), "adım Yusuf")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Kullanıcının adı Yusuf.", facts[0].Content)
}

func TestBuildGuardLocal(t *testing.T) {
	g, err := BuildGuard(config.DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &dedupe.LocalGuard{}, g)
}
