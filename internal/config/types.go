// Package config resolves, parses, validates, and defaults limn configuration.
package config

// Config is the fully materialized runtime configuration used by limn.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Engine      EngineConfig      `yaml:"engine"`
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Transcript  TranscriptConfig  `yaml:"transcript"`
	Profile     ProfileConfig     `yaml:"profile"`
}

// ServerConfig controls the HTTP surface exposed to the UI.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// EngineConfig points at the streaming recognition service.
type EngineConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `yaml:"input"`
	Fallback string `yaml:"fallback"`
}

// RecognitionConfig controls request-level hints passed to the engine.
type RecognitionConfig struct {
	Language             string `yaml:"language"`
	AutomaticPunctuation bool   `yaml:"automatic_punctuation"`
}

// TranscriptConfig controls transcript assembly formatting.
type TranscriptConfig struct {
	TrailingSpace bool `yaml:"trailing_space"`
}

// ProfileConfig points at the downstream profile/storage backend.
type ProfileConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	UserID     string `yaml:"user_id"`
	HealthPath string `yaml:"health_path"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}
