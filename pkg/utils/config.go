package utils

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the full runtime configuration. Defaults are applied first,
// then overridden by MANHWAHUB_* environment variables. A double underscore
// separates nesting levels: MANHWAHUB_OPENAI__API_KEY -> openai.api_key.
type Config struct {
	HTTPAddr string `koanf:"http_addr"`
	TCPAddr  string `koanf:"tcp_addr"`

	DB      DBConfig      `koanf:"db"`
	Log     LogConfig     `koanf:"log"`
	Catalog CatalogConfig `koanf:"catalog"`
	OpenAI  OpenAIConfig  `koanf:"openai"`
	Cloud   CloudConfig   `koanf:"cloud"`
}

type DBConfig struct {
	Path string `koanf:"path"` // empty = ~/.manhwahub/data.db
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
}

type CatalogConfig struct {
	Provider   string `koanf:"provider"` // "anilist" or "comick"
	AniListURL string `koanf:"anilist_url"`
	ComickURL  string `koanf:"comick_url"`
	PageSize   int    `koanf:"page_size"`
}

type OpenAIConfig struct {
	APIKey string `koanf:"api_key"` // empty disables AI recommendations
	Model  string `koanf:"model"`
}

// CloudConfig points at a Supabase-compatible project. Both values empty
// disables cloud sync entirely; the library then runs local-only.
type CloudConfig struct {
	URL     string `koanf:"url"`
	AnonKey string `koanf:"anon_key"`
	Table   string `koanf:"table"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		TCPAddr:  ":7070",
		Log:      LogConfig{Level: "info", Format: "json"},
		Catalog: CatalogConfig{
			Provider:   "anilist",
			AniListURL: "https://graphql.anilist.co",
			ComickURL:  "https://api.comick.io/v1.0",
			PageSize:   20,
		},
		OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
		Cloud:  CloudConfig{Table: "user_library"},
	}
}

// LoadConfig merges defaults with MANHWAHUB_* environment overrides.
func LoadConfig() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider("MANHWAHUB_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "MANHWAHUB_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
