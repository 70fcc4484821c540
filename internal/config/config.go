package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Interview Coach environment variables.
const EnvPrefix = "INTERVIEW_COACH_"

const (
	defaultSessionDuration  = 10 * time.Minute
	defaultQuestionDuration = 2 * time.Minute
	defaultAcquireTimeout   = 10 * time.Second
)

// Config holds all application configuration. Secrets (API keys, the access
// token) are loaded exclusively from environment variables and never appear
// in the config file.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`

	SessionDuration      string `yaml:"session_duration"`
	QuestionDuration     string `yaml:"question_duration"`
	AcquireTimeout       string `yaml:"acquire_timeout"`
	MaxTranscriptEntries int    `yaml:"max_transcript_entries"`

	OpeningPrompt string   `yaml:"opening_prompt"`
	AdvancePrefix string   `yaml:"advance_prefix"`
	Questions     []string `yaml:"questions"`
	QuestionModel string   `yaml:"question_model"`

	PositiveWords []string `yaml:"positive_words"`
	FillerWords   []string `yaml:"filler_words"`

	MediaBackend   string `yaml:"media_backend"`
	CameraDevice   string `yaml:"camera_device"`
	MicSampleRate  int    `yaml:"mic_sample_rate"`
	MicSampleRates []int  `yaml:"mic_sample_rates"`

	SpeechModel    string `yaml:"speech_model"`
	SpeechLanguage string `yaml:"speech_language"`

	SynthProvider string  `yaml:"synth_provider"`
	SynthModel    string  `yaml:"synth_model"`
	SynthVoice    string  `yaml:"synth_voice"`
	SynthSpeed    float64 `yaml:"synth_speed"`
	SynthCommand  string  `yaml:"synth_command"`

	Export ExportConfig `yaml:"export"`

	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	NATSURL      string `yaml:"nats_url"`
	NATSSubject  string `yaml:"nats_subject"`
	NATSEmbedded bool   `yaml:"nats_embedded"`
	NATSPort     int    `yaml:"nats_port"`

	// Secrets: env vars only, never serialized to YAML.
	DeepgramAPIKey  string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
	AuthToken       string `yaml:"-"`
}

// ExportConfig controls the layout of the exported transcript document.
// Heights are in abstract layout units; LineWidth is in characters.
type ExportConfig struct {
	Dir        string `yaml:"dir"`
	Filename   string `yaml:"filename"`
	Title      string `yaml:"title"`
	LineWidth  int    `yaml:"line_width"`
	PageHeight int    `yaml:"page_height"`
	FirstTop   int    `yaml:"first_top"`
	PageTop    int    `yaml:"page_top"`
	LineHeight int    `yaml:"line_height"`
	EntryGap   int    `yaml:"entry_gap"`
}

func defaults() Config {
	return Config{
		HTTPAddr:             ":8080",
		LogLevel:             "info",
		SessionDuration:      "10m",
		QuestionDuration:     "2m",
		AcquireTimeout:       "10s",
		MaxTranscriptEntries: 500,
		OpeningPrompt: "Welcome. All media is now locked. You have 2 minutes per question. " +
			"Please explain your experience with React and Frontend development.",
		AdvancePrefix: "Time elapsed for this topic. Moving to the next question: ",
		Questions:     []string{"How do you optimize React performance?"},
		PositiveWords: []string{"confident", "optimized", "scalable", "efficient", "react", "internship"},
		FillerWords:   []string{"um", "uh", "basically", "actually", "like", "sort of"},
		MediaBackend:  "hardware",
		CameraDevice:  "/dev/video0",
		MicSampleRate: 16000,
		MicSampleRates: []int{
			48000, 44100, 32000, 24000,
		},
		SpeechModel:    "nova-2",
		SpeechLanguage: "en-US",
		SynthProvider:  "openai",
		SynthModel:     "tts-1",
		SynthVoice:     "alloy",
		SynthSpeed:     0.95,
		SynthCommand:   "espeak --stdin --stdout",
		Export: ExportConfig{
			Dir:        "data/reports",
			Filename:   "Interview_Report.txt",
			Title:      "AI Interview Transcript",
			LineWidth:  90,
			PageHeight: 280,
			FirstTop:   30,
			PageTop:    20,
			LineHeight: 7,
			EntryGap:   5,
		},
		GoogleCredentialsFile: "./service-account.json",
		NATSSubject:           "interview.events",
		NATSPort:              4222,
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedSessionDuration returns SessionDuration as a time.Duration,
// falling back to 10m if the value is invalid.
func (c *Config) ParsedSessionDuration() time.Duration {
	return parsePositiveDuration(c.SessionDuration, defaultSessionDuration)
}

// ParsedQuestionDuration returns QuestionDuration as a time.Duration,
// falling back to 2m if the value is invalid.
func (c *Config) ParsedQuestionDuration() time.Duration {
	return parsePositiveDuration(c.QuestionDuration, defaultQuestionDuration)
}

// ParsedAcquireTimeout returns AcquireTimeout as a time.Duration,
// falling back to 10s if the value is invalid.
func (c *Config) ParsedAcquireTimeout() time.Duration {
	return parsePositiveDuration(c.AcquireTimeout, defaultAcquireTimeout)
}

// SampleRateCandidates returns a deduplicated ordered list of sample rates
// to try: preferred rate first, then configured alternatives, then defaults.
func (c *Config) SampleRateCandidates() []int {
	hardcoded := []int{16000, 48000, 44100, 32000, 24000}

	combined := make([]int, 0, 1+len(c.MicSampleRates)+len(hardcoded))
	combined = append(combined, c.MicSampleRate)
	combined = append(combined, c.MicSampleRates...)
	combined = append(combined, hardcoded...)

	seen := make(map[int]struct{}, len(combined))
	result := make([]int, 0, len(combined))
	for _, rate := range combined {
		if rate <= 0 {
			continue
		}
		if _, ok := seen[rate]; ok {
			continue
		}
		seen[rate] = struct{}{}
		result = append(result, rate)
	}
	return result
}

func parsePositiveDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d < time.Second {
		return fallback
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	stringVars := map[string]*string{
		"HTTP_ADDR":               &cfg.HTTPAddr,
		"LOG_LEVEL":               &cfg.LogLevel,
		"SESSION_DURATION":        &cfg.SessionDuration,
		"QUESTION_DURATION":       &cfg.QuestionDuration,
		"ACQUIRE_TIMEOUT":         &cfg.AcquireTimeout,
		"QUESTION_MODEL":          &cfg.QuestionModel,
		"MEDIA_BACKEND":           &cfg.MediaBackend,
		"CAMERA_DEVICE":           &cfg.CameraDevice,
		"SPEECH_MODEL":            &cfg.SpeechModel,
		"SPEECH_LANGUAGE":         &cfg.SpeechLanguage,
		"SYNTH_PROVIDER":          &cfg.SynthProvider,
		"SYNTH_MODEL":             &cfg.SynthModel,
		"SYNTH_VOICE":             &cfg.SynthVoice,
		"SYNTH_COMMAND":           &cfg.SynthCommand,
		"EXPORT_DIR":              &cfg.Export.Dir,
		"GDRIVE_FOLDER_ID":        &cfg.GDriveFolderID,
		"GOOGLE_CREDENTIALS_FILE": &cfg.GoogleCredentialsFile,
		"NATS_URL":                &cfg.NATSURL,
		"NATS_SUBJECT":            &cfg.NATSSubject,
	}
	for key, target := range stringVars {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*target = v
		}
	}

	if v := os.Getenv(EnvPrefix + "MAX_TRANSCRIPT_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.MaxTranscriptEntries = n
		}
	}
	if v := os.Getenv(EnvPrefix + "SYNTH_SPEED"); v != "" {
		if speed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && speed > 0 {
			cfg.SynthSpeed = speed
		}
	}
	if v := os.Getenv(EnvPrefix + "MIC_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && rate > 0 {
			cfg.MicSampleRate = rate
		}
	}
	if v := os.Getenv(EnvPrefix + "NATS_EMBEDDED"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.NATSEmbedded = b
		}
	}
	if v := os.Getenv(EnvPrefix + "NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && port > 0 {
			cfg.NATSPort = port
		}
	}
	if v := os.Getenv(EnvPrefix + "MIC_SAMPLE_RATES"); v != "" {
		cfg.MicSampleRates = parseSampleRates(v)
	}
}

func loadSecrets(cfg *Config) {
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
	cfg.AuthToken = os.Getenv(EnvPrefix + "AUTH_TOKEN")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.DeepgramAPIKey == "" {
		warnings = append(warnings, "Deepgram API key not configured: live transcription is disabled and answers must be typed. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
	}
	if cfg.SynthProvider == "openai" && cfg.OpenAIAPIKey == "" {
		warnings = append(warnings, "OpenAI API key not configured: spoken prompts are disabled. Set "+EnvPrefix+"OPENAI_API_KEY.")
	}
	switch cfg.SynthProvider {
	case "openai", "exec", "none":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown synth_provider %q: spoken prompts are disabled.", cfg.SynthProvider))
	}
	switch cfg.MediaBackend {
	case "hardware", "virtual":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown media_backend %q: using hardware.", cfg.MediaBackend))
	}

	durations := []struct {
		name, raw, fallback string
	}{
		{"session_duration", cfg.SessionDuration, "10m"},
		{"question_duration", cfg.QuestionDuration, "2m"},
		{"acquire_timeout", cfg.AcquireTimeout, "10s"},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.raw)
		if err != nil || parsed < time.Second {
			warnings = append(warnings, fmt.Sprintf("Invalid %s %q: using default %s.", d.name, d.raw, d.fallback))
		}
	}

	if cfg.MaxTranscriptEntries <= 0 {
		warnings = append(warnings, fmt.Sprintf("Invalid max_transcript_entries %d: using default 500.", cfg.MaxTranscriptEntries))
		cfg.MaxTranscriptEntries = 500
	}
	if len(cfg.Questions) == 0 {
		warnings = append(warnings, "No interview questions configured: auto-advance repeats the advance prompt only.")
	}

	if cfg.NATSEmbedded && cfg.NATSURL != "" {
		warnings = append(warnings, "Both nats_embedded and nats_url set: publishing to the embedded server.")
	}
	if cfg.NATSEmbedded && cfg.NATSPort <= 0 {
		warnings = append(warnings, fmt.Sprintf("Invalid nats_port %d: using default 4222.", cfg.NATSPort))
		cfg.NATSPort = 4222
	}

	if cfg.QuestionModel != "" {
		provider, _, _ := strings.Cut(cfg.QuestionModel, "/")
		if cfg.ProviderAPIKey(provider) == "" {
			warnings = append(warnings, fmt.Sprintf("No API key for question_model provider %q: follow-up questions are disabled.", provider))
		}
	}

	return warnings
}

// ProviderAPIKey returns the configured secret for an LLM provider name.
func (c *Config) ProviderAPIKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return ""
	}
}

func parseSampleRates(raw string) []int {
	parts := strings.Split(raw, ",")
	seen := make(map[int]struct{}, len(parts))
	result := make([]int, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		rate, err := strconv.Atoi(trimmed)
		if err != nil || rate <= 0 {
			continue
		}
		if _, ok := seen[rate]; ok {
			continue
		}
		seen[rate] = struct{}{}
		result = append(result, rate)
	}

	return result
}
