package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "anilist", cfg.Catalog.Provider)
	require.Equal(t, 20, cfg.Catalog.PageSize)
	require.Empty(t, cfg.OpenAI.APIKey)
	require.Equal(t, "user_library", cfg.Cloud.Table)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MANHWAHUB_HTTP_ADDR", ":9999")
	t.Setenv("MANHWAHUB_OPENAI__API_KEY", "sk-test")
	t.Setenv("MANHWAHUB_CATALOG__PROVIDER", "comick")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.HTTPAddr)
	require.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	require.Equal(t, "comick", cfg.Catalog.Provider)
}
