package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type ModelConfig struct {
	Path       string `yaml:"path"`
	VoicesPath string `yaml:"voices_path"`
	SampleRate int    `yaml:"sample_rate"`
}

type EngineConfig struct {
	Mode    string `yaml:"mode"` // mock, exec
	Command string `yaml:"command"`
}

type PhonemizerConfig struct {
	Mode                string `yaml:"mode"` // rule, exec
	Command             string `yaml:"command"`
	PreservePunctuation bool   `yaml:"preserve_punctuation"`
	WithStress          bool   `yaml:"with_stress"`
}

type SynthesisConfig struct {
	MaxTokens          int     `yaml:"max_tokens"`
	Language           string  `yaml:"language"`
	Style              string  `yaml:"style"`
	ForceStyle         bool    `yaml:"force_style"`
	AutoDetectLanguage bool    `yaml:"auto_detect_language"`
	Speed              float64 `yaml:"speed"`
	InitialSilence     int     `yaml:"initial_silence"`
}

type StreamConfig struct {
	DetectAfterChars   int `yaml:"detect_after_chars"`
	PendingByteCeiling int `yaml:"pending_byte_ceiling"`
	ChannelDepth       int `yaml:"channel_depth"`
}

type SessionStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	RuntimeName  string             `yaml:"runtime_name"`
	Environment  string             `yaml:"environment"`
	HTTP         HTTPConfig         `yaml:"http"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Bus          BusConfig          `yaml:"bus"`
	Model        ModelConfig        `yaml:"model"`
	Engine       EngineConfig       `yaml:"engine"`
	Phonemizer   PhonemizerConfig   `yaml:"phonemizer"`
	Synthesis    SynthesisConfig    `yaml:"synthesis"`
	Stream       StreamConfig       `yaml:"stream"`
	SessionStore SessionStoreConfig `yaml:"session_store"`
}

func Default() Config {
	return Config{
		RuntimeName: "canto-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 3000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Model: ModelConfig{
			Path:       "checkpoints/kokoro-v1.0.onnx",
			VoicesPath: "data/voices-v1.0.bin",
			SampleRate: 24000,
		},
		Engine: EngineConfig{
			Mode: "mock",
		},
		Phonemizer: PhonemizerConfig{
			Mode:                "rule",
			PreservePunctuation: true,
			WithStress:          true,
		},
		Synthesis: SynthesisConfig{
			MaxTokens:          500,
			Language:           "en-us",
			Style:              "af_heart",
			ForceStyle:         false,
			AutoDetectLanguage: false,
			Speed:              1.0,
			InitialSilence:     0,
		},
		Stream: StreamConfig{
			DetectAfterChars:   60,
			PendingByteCeiling: 200,
			ChannelDepth:       32,
		},
		SessionStore: SessionStoreConfig{
			Path:          "./data/canto-sessions.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "CANTO_RUNTIME_NAME")
	overrideString(&cfg.Environment, "CANTO_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "CANTO_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "CANTO_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "CANTO_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "CANTO_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "CANTO_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "CANTO_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "CANTO_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "CANTO_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "CANTO_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "CANTO_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "CANTO_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "CANTO_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "CANTO_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "CANTO_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "CANTO_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Model.Path, "CANTO_MODEL_PATH")
	overrideString(&cfg.Model.VoicesPath, "CANTO_MODEL_VOICES_PATH")
	overrideInt(&cfg.Model.SampleRate, "CANTO_MODEL_SAMPLE_RATE")
	overrideString(&cfg.Engine.Mode, "CANTO_ENGINE_MODE")
	overrideString(&cfg.Engine.Command, "CANTO_ENGINE_COMMAND")
	overrideString(&cfg.Phonemizer.Mode, "CANTO_PHONEMIZER_MODE")
	overrideString(&cfg.Phonemizer.Command, "CANTO_PHONEMIZER_COMMAND")
	overrideBool(&cfg.Phonemizer.PreservePunctuation, "CANTO_PHONEMIZER_PRESERVE_PUNCTUATION")
	overrideBool(&cfg.Phonemizer.WithStress, "CANTO_PHONEMIZER_WITH_STRESS")
	overrideInt(&cfg.Synthesis.MaxTokens, "CANTO_SYNTHESIS_MAX_TOKENS")
	overrideString(&cfg.Synthesis.Language, "CANTO_SYNTHESIS_LANGUAGE")
	overrideString(&cfg.Synthesis.Style, "CANTO_SYNTHESIS_STYLE")
	overrideBool(&cfg.Synthesis.ForceStyle, "CANTO_SYNTHESIS_FORCE_STYLE")
	overrideBool(&cfg.Synthesis.AutoDetectLanguage, "CANTO_SYNTHESIS_AUTO_DETECT_LANGUAGE")
	overrideFloat(&cfg.Synthesis.Speed, "CANTO_SYNTHESIS_SPEED")
	overrideInt(&cfg.Synthesis.InitialSilence, "CANTO_SYNTHESIS_INITIAL_SILENCE")
	overrideInt(&cfg.Stream.DetectAfterChars, "CANTO_STREAM_DETECT_AFTER_CHARS")
	overrideInt(&cfg.Stream.PendingByteCeiling, "CANTO_STREAM_PENDING_BYTE_CEILING")
	overrideInt(&cfg.Stream.ChannelDepth, "CANTO_STREAM_CHANNEL_DEPTH")
	overrideString(&cfg.SessionStore.Path, "CANTO_SESSION_STORE_PATH")
	overrideString(&cfg.SessionStore.RetentionMode, "CANTO_SESSION_STORE_RETENTION_MODE")
	overrideInt(&cfg.SessionStore.RetentionDays, "CANTO_SESSION_STORE_RETENTION_DAYS")
	overrideInt(&cfg.SessionStore.MaxSessions, "CANTO_SESSION_STORE_MAX_SESSIONS")
	overrideBool(&cfg.SessionStore.VacuumOnStart, "CANTO_SESSION_STORE_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Model.VoicesPath == "" {
		return errors.New("model.voices_path must not be empty")
	}
	if cfg.Model.SampleRate <= 0 {
		return errors.New("model.sample_rate must be positive")
	}
	switch cfg.Engine.Mode {
	case "mock", "exec":
	default:
		return errors.New("engine.mode must be one of mock|exec")
	}
	if cfg.Engine.Mode == "exec" && cfg.Engine.Command == "" {
		return errors.New("engine.command must be set when mode=exec")
	}
	switch cfg.Phonemizer.Mode {
	case "rule", "exec":
	default:
		return errors.New("phonemizer.mode must be one of rule|exec")
	}
	if cfg.Phonemizer.Mode == "exec" && cfg.Phonemizer.Command == "" {
		return errors.New("phonemizer.command must be set when mode=exec")
	}
	if cfg.Synthesis.MaxTokens < 1 {
		return errors.New("synthesis.max_tokens must be >= 1")
	}
	if cfg.Synthesis.Language == "" {
		return errors.New("synthesis.language must not be empty")
	}
	if cfg.Synthesis.Style == "" {
		return errors.New("synthesis.style must not be empty")
	}
	if cfg.Synthesis.Speed <= 0 {
		return errors.New("synthesis.speed must be positive")
	}
	if cfg.Synthesis.InitialSilence < 0 {
		return errors.New("synthesis.initial_silence must be >= 0")
	}
	if cfg.Stream.DetectAfterChars <= 0 {
		return errors.New("stream.detect_after_chars must be positive")
	}
	if cfg.Stream.PendingByteCeiling <= 0 {
		return errors.New("stream.pending_byte_ceiling must be positive")
	}
	if cfg.Stream.ChannelDepth < 0 {
		return errors.New("stream.channel_depth must be >= 0")
	}
	if cfg.SessionStore.Path == "" {
		return errors.New("session_store.path must not be empty")
	}
	switch cfg.SessionStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("session_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.SessionStore.RetentionDays < 0 {
		return errors.New("session_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	return nil
}
