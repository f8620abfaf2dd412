package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "PUBMED_CURATOR_CONFIG"
	openAIAPIKeyEnv = "OPENAI_API_KEY"
	entrezAPIKeyEnv = "NCBI_API_KEY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Source     SourceConfig     `yaml:"source"`
	Cache      CacheConfig      `yaml:"cache"`
	LLM        LLMConfig        `yaml:"llm"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Scorer     ScorerConfig     `yaml:"scorer"`
	Output     OutputConfig     `yaml:"output"`
}

// LoggingConfig controls the slog handler level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig describes the logical PubMed source and its ordered mirrors.
type SourceConfig struct {
	Query        string         `yaml:"query"`
	LookbackDays int            `yaml:"lookbackDays"`
	Limit        int            `yaml:"limit"`
	Mirrors      []MirrorConfig `yaml:"mirrors"`
	Entrez       EntrezConfig   `yaml:"entrez"`
}

// MirrorConfig is one RSS endpoint tried by the fetch cascade.
type MirrorConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// EntrezConfig wires the direct authenticated E-utilities call. Enabled is
// a pointer so an explicit `enabled: false` in YAML is distinguishable from
// the key being absent.
type EntrezConfig struct {
	Enabled *bool  `yaml:"enabled"`
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
}

// IsEnabled reports whether the Entrez strategy should be built. Unset
// defaults to enabled.
func (e EntrezConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// CacheConfig locates the last-successful-batch store.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig defines how to contact the OpenAI-compatible chat API.
type LLMConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	TimeoutSec   int    `yaml:"timeoutSeconds"`
	RequestDelay string `yaml:"requestDelay"`
}

// Timeout resolves the per-call deadline.
func (l LLMConfig) Timeout() time.Duration {
	if l.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(l.TimeoutSec) * time.Second
}

// Delay resolves the inter-call pause used to respect upstream rate limits.
func (l LLMConfig) Delay() time.Duration {
	d, err := time.ParseDuration(l.RequestDelay)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

// ClassifierConfig carries the relevance instruction and the on-error policy.
type ClassifierConfig struct {
	InstructionFile string `yaml:"instructionFile"`
	OnError         string `yaml:"onError"`
	MaxPromptChars  int    `yaml:"maxPromptChars"`
}

// FailOpen reports whether classifier failures default to acceptance.
func (c ClassifierConfig) FailOpen() bool {
	return !strings.EqualFold(strings.TrimSpace(c.OnError), "reject")
}

// ScorerConfig carries the selection criteria and ranking bounds.
type ScorerConfig struct {
	CriteriaFile string `yaml:"criteriaFile"`
	TopN         int    `yaml:"topN"`
}

// OutputConfig names the feed artifacts and their channel metadata.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	AcceptedFile string `yaml:"acceptedFile"`
	RejectedFile string `yaml:"rejectedFile"`
	BestOfFile   string `yaml:"bestOfFile"`
	ChannelLink  string `yaml:"channelLink"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An empty path falls back to the PUBMED_CURATOR_CONFIG variable.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg
}

// ClassifierInstruction reads the required relevance instruction. A missing
// file is a configuration error and must abort the run before any network
// call is made.
func (c Config) ClassifierInstruction() (string, error) {
	return readInstruction(c.Classifier.InstructionFile, "classifier instruction")
}

// ScorerCriteria reads the required best-of selection criteria.
func (c Config) ScorerCriteria() (string, error) {
	return readInstruction(c.Scorer.CriteriaFile, "scorer criteria")
}

func readInstruction(path, what string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%s file is not configured", what)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s %s: %w", what, path, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("%s file %s is empty", what, path)
	}
	return text, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(entrezAPIKeyEnv); v != "" {
		c.Source.Entrez.APIKey = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Source.Query != "" {
		base.Source.Query = override.Source.Query
	}
	if override.Source.LookbackDays > 0 {
		base.Source.LookbackDays = override.Source.LookbackDays
	}
	if override.Source.Limit > 0 {
		base.Source.Limit = override.Source.Limit
	}
	if len(override.Source.Mirrors) > 0 {
		base.Source.Mirrors = override.Source.Mirrors
	}
	if override.Source.Entrez.BaseURL != "" {
		base.Source.Entrez.BaseURL = override.Source.Entrez.BaseURL
	}
	if override.Source.Entrez.APIKey != "" {
		base.Source.Entrez.APIKey = override.Source.Entrez.APIKey
	}
	if override.Source.Entrez.Enabled != nil {
		base.Source.Entrez.Enabled = override.Source.Entrez.Enabled
	}

	if override.Cache.Path != "" {
		base.Cache.Path = override.Cache.Path
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.TimeoutSec > 0 {
		base.LLM.TimeoutSec = override.LLM.TimeoutSec
	}
	if override.LLM.RequestDelay != "" {
		base.LLM.RequestDelay = override.LLM.RequestDelay
	}

	if override.Classifier.InstructionFile != "" {
		base.Classifier.InstructionFile = override.Classifier.InstructionFile
	}
	if override.Classifier.OnError != "" {
		base.Classifier.OnError = override.Classifier.OnError
	}
	if override.Classifier.MaxPromptChars > 0 {
		base.Classifier.MaxPromptChars = override.Classifier.MaxPromptChars
	}

	if override.Scorer.CriteriaFile != "" {
		base.Scorer.CriteriaFile = override.Scorer.CriteriaFile
	}
	if override.Scorer.TopN > 0 {
		base.Scorer.TopN = override.Scorer.TopN
	}

	if override.Output.Dir != "" {
		base.Output.Dir = override.Output.Dir
	}
	if override.Output.AcceptedFile != "" {
		base.Output.AcceptedFile = override.Output.AcceptedFile
	}
	if override.Output.RejectedFile != "" {
		base.Output.RejectedFile = override.Output.RejectedFile
	}
	if override.Output.BestOfFile != "" {
		base.Output.BestOfFile = override.Output.BestOfFile
	}
	if override.Output.ChannelLink != "" {
		base.Output.ChannelLink = override.Output.ChannelLink
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Source: SourceConfig{
			LookbackDays: 7,
			Limit:        100,
			Entrez: EntrezConfig{
				BaseURL: "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			},
		},
		Cache: CacheConfig{Path: "cache/records.db"},
		LLM: LLMConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			TimeoutSec:   30,
			RequestDelay: "500ms",
		},
		Classifier: ClassifierConfig{
			InstructionFile: "prompts/classify.txt",
			OnError:         "accept",
			MaxPromptChars:  4000,
		},
		Scorer: ScorerConfig{
			CriteriaFile: "prompts/best_of_criteria.txt",
			TopN:         10,
		},
		Output: OutputConfig{
			Dir:          "output",
			AcceptedFile: "filtered_feed.xml",
			RejectedFile: "rejected_feed.xml",
			BestOfFile:   "best_of_feed.xml",
			ChannelLink:  "https://pubmed.ncbi.nlm.nih.gov",
		},
	}
}
