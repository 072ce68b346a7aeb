package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: "127.0.0.1:8680"},
		Engine: EngineConfig{
			URL: "ws://127.0.0.1:8090/v1/listen",
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Recognition: RecognitionConfig{
			Language:             "en-US",
			AutomaticPunctuation: true,
		},
		Transcript: TranscriptConfig{TrailingSpace: false},
		Profile: ProfileConfig{
			BaseURL:    "http://127.0.0.1:9000",
			HealthPath: "/v1/health",
		},
	}
}
