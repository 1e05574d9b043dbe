// Package config loads holocron settings from an optional YAML file and
// HOLOCRON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HOLOCRON_QDRANT_ADDR.
const EnvPrefix = "HOLOCRON"

type Server struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

type Qdrant struct {
	Addr       string `mapstructure:"addr"`
	Collection string `mapstructure:"collection"`
}

type Embedding struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

type Generation struct {
	Provider  string `mapstructure:"provider"`
	Profile   string `mapstructure:"profile"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	// Temperature is nil unless set, so an explicit 0 overrides the profile.
	Temperature *float32 `mapstructure:"temperature"`
}

type Retrieval struct {
	Policy        string  `mapstructure:"policy"`
	CombinedTopK  int     `mapstructure:"combined_top_k"`
	CharacterTopK int     `mapstructure:"character_top_k"`
	PlanetTopK    int     `mapstructure:"planet_top_k"`
	ShipTopK      int     `mapstructure:"ship_top_k"`
	MinScore      float32 `mapstructure:"min_score"`
}

type Jobs struct {
	Backend         string        `mapstructure:"backend"`
	NATSURL         string        `mapstructure:"nats_url"`
	Bucket          string        `mapstructure:"bucket"`
	Subject         string        `mapstructure:"subject"`
	TTL             time.Duration `mapstructure:"ttl"`
	Timeout         time.Duration `mapstructure:"timeout"`
	StateMachineARN string        `mapstructure:"state_machine_arn"`
}

type Secrets struct {
	Provider     string `mapstructure:"provider"`
	SecretID     string `mapstructure:"secret_id"`
	SSMParameter string `mapstructure:"ssm_parameter"`
}

type AWS struct {
	Region string `mapstructure:"region"`
}

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Neo4j struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type SWAPI struct {
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type Wiki struct {
	BaseURL   string        `mapstructure:"base_url"`
	SectionID string        `mapstructure:"section_id"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Delay     time.Duration `mapstructure:"delay"`
}

type Ingest struct {
	BatchSize   int    `mapstructure:"batch_size"`
	MissingRefs string `mapstructure:"missing_refs"`
	Artifact    string `mapstructure:"artifact"`
}

type Ollama struct {
	URL string `mapstructure:"url"`
}

type OpenAI struct {
	BaseURL string `mapstructure:"base_url"`
}

// Config is the full configuration surface.
type Config struct {
	Server     Server     `mapstructure:"server"`
	Qdrant     Qdrant     `mapstructure:"qdrant"`
	Embedding  Embedding  `mapstructure:"embedding"`
	Generation Generation `mapstructure:"generation"`
	Retrieval  Retrieval  `mapstructure:"retrieval"`
	Jobs       Jobs       `mapstructure:"jobs"`
	Secrets    Secrets    `mapstructure:"secrets"`
	AWS        AWS        `mapstructure:"aws"`
	Redis      Redis      `mapstructure:"redis"`
	Neo4j      Neo4j      `mapstructure:"neo4j"`
	SWAPI      SWAPI      `mapstructure:"swapi"`
	Wiki       Wiki       `mapstructure:"wiki"`
	Ingest     Ingest     `mapstructure:"ingest"`
	Ollama     Ollama     `mapstructure:"ollama"`
	OpenAI     OpenAI     `mapstructure:"openai"`
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"server.port":               8080,
		"server.cors_origin":        "*",
		"qdrant.addr":               "localhost:6334",
		"qdrant.collection":         "sw-index",
		"embedding.provider":        "openai",
		"embedding.model":           "text-embedding-ada-002",
		"generation.provider":       "openai",
		"generation.profile":        "gpt-3.5",
		"generation.model":          "",
		"generation.max_tokens":     0,
		"retrieval.policy":          "combined",
		"retrieval.combined_top_k":  6,
		"retrieval.character_top_k": 4,
		"retrieval.planet_top_k":    2,
		"retrieval.ship_top_k":      2,
		"retrieval.min_score":       0,
		"jobs.backend":              "none",
		"jobs.nats_url":             "nats://localhost:4222",
		"jobs.bucket":               "holocron-jobs",
		"jobs.subject":              "holocron.jobs.story",
		"jobs.ttl":                  24 * time.Hour,
		"jobs.timeout":              5 * time.Minute,
		"jobs.state_machine_arn":    "",
		"secrets.provider":          "env",
		"secrets.secret_id":         "",
		"secrets.ssm_parameter":     "/myproject/starwars/secret-arn",
		"aws.region":                "us-west-2",
		"redis.addr":                "",
		"redis.password":            "",
		"redis.ttl":                 24 * time.Hour,
		"neo4j.url":                 "",
		"neo4j.user":                "neo4j",
		"neo4j.password":            "",
		"swapi.base_url":            "https://swapi.dev/api",
		"swapi.requests_per_second": 5,
		"wiki.base_url":             "https://starwars.fandom.com/wiki",
		"wiki.section_id":           "Personality_and_traits",
		"wiki.max_tokens":           500,
		"wiki.delay":                time.Second,
		"ingest.batch_size":         100,
		"ingest.missing_refs":       "abort",
		"ingest.artifact":           "processed_docs.json",
		"ollama.url":                "http://localhost:11434",
		"openai.base_url":           "",
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load reads path (when non-empty and present) and the environment. A
// missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No default, so the environment has to be bound explicitly.
	if err := v.BindEnv("generation.temperature"); err != nil {
		return Config{}, fmt.Errorf("config: bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	checks := []struct {
		key, value string
		allowed    []string
	}{
		{"embedding.provider", c.Embedding.Provider, []string{"openai", "bedrock", "ollama"}},
		{"generation.provider", c.Generation.Provider, []string{"openai", "bedrock", "ollama"}},
		{"retrieval.policy", c.Retrieval.Policy, []string{"combined", "per_entity"}},
		{"jobs.backend", c.Jobs.Backend, []string{"none", "nats", "stepfunctions"}},
		{"secrets.provider", c.Secrets.Provider, []string{"env", "aws"}},
		{"ingest.missing_refs", c.Ingest.MissingRefs, []string{"abort", "skip", "placeholder"}},
	}
	for _, ch := range checks {
		if !slices.Contains(ch.allowed, ch.value) {
			return fmt.Errorf("config: %s must be one of %v, got %q", ch.key, ch.allowed, ch.value)
		}
	}
	if c.Jobs.Backend == "stepfunctions" && c.Jobs.StateMachineARN == "" {
		return errors.New("config: jobs.state_machine_arn is required for the stepfunctions backend")
	}
	return nil
}
