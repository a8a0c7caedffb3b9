package model

// Config holds all runtime configuration. It is loaded once at process start
// and passed explicitly; business logic never reads ambient global state.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Oracle   OracleConfig   `mapstructure:"oracle" yaml:"oracle"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// LLMConfig configures the text-generation backend.
type LLMConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature       float32 `mapstructure:"temperature" yaml:"temperature"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// OracleConfig configures the travel/bed oracle.
type OracleConfig struct {
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	CacheEnabled    bool    `mapstructure:"cache_enabled" yaml:"cache_enabled"`
	GroundSpeedKmh  float64 `mapstructure:"ground_speed_kmh" yaml:"ground_speed_kmh"`
	HeliSpeedKmh    float64 `mapstructure:"heli_speed_kmh" yaml:"heli_speed_kmh"`
	FixedWingKmh    float64 `mapstructure:"fixed_wing_kmh" yaml:"fixed_wing_kmh"`
	RoadFactor      float64 `mapstructure:"road_factor" yaml:"road_factor"`
}

// PipelineConfig configures decision behavior.
type PipelineConfig struct {
	// BlockingThreshold is the minimum confidence (0-100) at which a
	// likely_met blocking rule makes a campus ineligible.
	BlockingThreshold int  `mapstructure:"blocking_threshold" yaml:"blocking_threshold"`
	CampusWorkers     int  `mapstructure:"campus_workers" yaml:"campus_workers"`
	Strict            bool `mapstructure:"strict" yaml:"strict"`
}

// OutputConfig configures rendering.
type OutputConfig struct {
	Verbose        bool `mapstructure:"verbose" yaml:"verbose"`
	IncludePayload bool `mapstructure:"include_payload" yaml:"include_payload"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			TimeoutSeconds:    30,
			MaxTokens:         2000,
			Temperature:       0.1,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Oracle: OracleConfig{
			CacheTTLSeconds: 300,
			CacheEnabled:    true,
			GroundSpeedKmh:  65,
			HeliSpeedKmh:    240,
			FixedWingKmh:    450,
			RoadFactor:      1.3,
		},
		Pipeline: PipelineConfig{
			BlockingThreshold: 80,
			CampusWorkers:     4,
		},
		Output: OutputConfig{
			IncludePayload: true,
		},
	}
}
