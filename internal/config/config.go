package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	TurnDecisionModel     = "model"
	TurnDecisionHeuristic = "heuristic"

	STTProviderDeepgram    = "deepgram"
	STTProviderCloudSpeech = "cloudspeech"
)

const (
	defaultHeuristicShortWait = 1500 * time.Millisecond
	defaultModelShortWait     = 2000 * time.Millisecond
)

type Config struct {
	Env       string `env:"ENV" envDefault:"production"`
	Port      int    `env:"PORT" envDefault:"3000"`
	StaticDir string `env:"STATIC_DIR" envDefault:"public"`

	DeepgramAPIKey string `env:"DEEPGRAM_API_KEY"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	GeminiModel    string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	DecisionModel  string `env:"DECISION_MODEL"`

	STTProvider          string        `env:"STT_PROVIDER" envDefault:"deepgram"`
	STTModel             string        `env:"STT_MODEL" envDefault:"nova-3"`
	STTLanguage          string        `env:"STT_LANGUAGE" envDefault:"en-IN"`
	STTKeepAliveInterval time.Duration `env:"STT_KEEPALIVE_INTERVAL" envDefault:"3s"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`

	TTSVoice           string        `env:"TTS_VOICE" envDefault:"aura-2-thalia-en"`
	SampleRate         int           `env:"SAMPLE_RATE" envDefault:"16000"`
	AudioPacketLatency time.Duration `env:"AUDIO_PACKET_LATENCY" envDefault:"160ms"`

	TurnDecision      string        `env:"TURN_DECISION" envDefault:"model"`
	TurnWordThreshold int           `env:"TURN_WORD_THRESHOLD" envDefault:"20"`
	TurnShortWait     time.Duration `env:"TURN_SHORT_WAIT"`
	TurnLongWait      time.Duration `env:"TURN_LONG_WAIT" envDefault:"4s"`

	SystemPrompt         string        `env:"SYSTEM_PROMPT"`
	// GreetingEnabled turns the opening greeting off. An empty GREETING_PROMPT
	// falls back to the default prompt.
	GreetingEnabled      bool          `env:"GREETING_ENABLED" envDefault:"true"`
	GreetingPrompt       string        `env:"GREETING_PROMPT" envDefault:"Hello, let's start the interview."`
	GreetingDelay        time.Duration `env:"GREETING_DELAY" envDefault:"500ms"`
	StatusGeneratingText string        `env:"STATUS_GENERATING_TEXT" envDefault:"Interviewing..."`
}

// Load reads .env when present, then the environment, and validates the
// result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}

	switch c.TurnDecision {
	case TurnDecisionModel, TurnDecisionHeuristic:
	default:
		return fmt.Errorf("TURN_DECISION must be %q or %q, got %q", TurnDecisionModel, TurnDecisionHeuristic, c.TurnDecision)
	}
	switch c.STTProvider {
	case STTProviderDeepgram, STTProviderCloudSpeech:
	default:
		return fmt.Errorf("STT_PROVIDER must be %q or %q, got %q", STTProviderDeepgram, STTProviderCloudSpeech, c.STTProvider)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.AudioPacketLatency <= 0 {
		return fmt.Errorf("AUDIO_PACKET_LATENCY must be positive, got %s", c.AudioPacketLatency)
	}
	if c.TurnWordThreshold <= 0 {
		return fmt.Errorf("TURN_WORD_THRESHOLD must be positive, got %d", c.TurnWordThreshold)
	}
	if c.TurnShortWait < 0 || c.TurnLongWait <= 0 {
		return fmt.Errorf("TURN_SHORT_WAIT and TURN_LONG_WAIT must be positive, got %s and %s", c.TurnShortWait, c.TurnLongWait)
	}
	if c.GreetingDelay < 0 {
		return fmt.Errorf("GREETING_DELAY must not be negative, got %s", c.GreetingDelay)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	checks := []requiredEnvField{
		{name: "GEMINI_API_KEY", value: c.GeminiAPIKey},
		// Speech is always synthesized with Deepgram.
		{name: "DEEPGRAM_API_KEY", value: c.DeepgramAPIKey},
	}
	if c.STTProvider == STTProviderCloudSpeech {
		checks = append(checks,
			requiredEnvField{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		)
	}
	return checks
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ShortWait is the wait after a turn decided complete. It defaults per
// decision strategy.
func (c *Config) ShortWait() time.Duration {
	if c.TurnShortWait > 0 {
		return c.TurnShortWait
	}
	if c.TurnDecision == TurnDecisionHeuristic {
		return defaultHeuristicShortWait
	}
	return defaultModelShortWait
}

// TurnDecisionModelName is the model asked whether a turn is complete.
func (c *Config) TurnDecisionModelName() string {
	if c.DecisionModel != "" {
		return c.DecisionModel
	}
	return c.GeminiModel
}

// Greeting is the prompt the interviewer opens with, empty when disabled.
func (c *Config) Greeting() string {
	if !c.GreetingEnabled {
		return ""
	}
	return c.GreetingPrompt
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
