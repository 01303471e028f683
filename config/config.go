// Package config loads hospital-core's runtime configuration from
// HOSPITALCORE_* environment variables (SPEC_FULL.md §4.0), optionally
// seeded from a .env file via joho/godotenv and overridable by an optional
// YAML file via gopkg.in/yaml.v3. Duration-shaped values accept both plain
// Go duration strings ("30m") and bare integers via go-str2duration, since
// spec.md §6 expresses them as minutes/seconds/milliseconds.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment variable this package reads.
const EnvPrefix = "HOSPITALCORE_"

// Config holds every tunable named in spec.md §6, plus the ambient process
// topology settings SPEC_FULL.md §2.1 adds (listen address, storage and
// workflow engine backend selection, LLM provider credentials).
type Config struct {
	// Bed Lifecycle Manager (spec.md §4.2, §6). BedCleaningDurationMinutes
	// is loaded but not passed to bedlifecycle by cmd/hospitalcored; the
	// manager uses bedlifecycle.DefaultCleaningDurationMinutes instead.
	BedCleaningDurationMinutes int `yaml:"bed_cleaning_duration_minutes"`
	BedSweepIntervalSeconds    int `yaml:"bed_sweep_interval_seconds"`

	// Orchestrator (spec.md §4.6, §6).
	OrchestratorMaxToolRounds int `yaml:"orchestrator_max_tool_rounds"`
	ToolCallTimeoutMS         int `yaml:"tool_call_timeout_ms"`
	LLMCallTimeoutMS          int `yaml:"llm_call_timeout_ms"`
	ChatTurnTimeoutMS         int `yaml:"chat_turn_timeout_ms"`
	ConversationWindowSize    int `yaml:"conversation_window_size"`
	SessionLRUCapacity        int `yaml:"session_lru_capacity"`

	// Workflow Engine (spec.md §4.4, §6).
	WorkflowNodeRetryMax int `yaml:"workflow_node_retry_max"`

	// Process topology (SPEC_FULL.md §2.1): which backends cmd/hospitalcored
	// wires up. Empty DatabaseURL/RedisAddr mean "use the in-memory
	// reference implementation".
	ListenAddr      string `yaml:"listen_addr"`
	DatabaseURL     string `yaml:"database_url"`
	RedisAddr       string `yaml:"redis_addr"`
	WorkflowEngine  string `yaml:"workflow_engine"` // "inmem" (default) or "temporal"
	TemporalHostPort string `yaml:"temporal_host_port"`
	TemporalNamespace string `yaml:"temporal_namespace"`

	// LLM Router providers (SPEC_FULL.md §4.8). Any provider whose API key
	// is empty is left unconfigured and skipped by the router.
	LLMProviderOrder   []string `yaml:"llm_provider_order"`
	AnthropicAPIKey    string   `yaml:"-"`
	AnthropicModel     string   `yaml:"anthropic_model"`
	OpenAIAPIKey       string   `yaml:"-"`
	OpenAIModel        string   `yaml:"openai_model"`
	BedrockDefaultModel string  `yaml:"bedrock_default_model"`
	BedrockRegion      string   `yaml:"bedrock_region"`

	// Clinical knowledge base (SPEC_FULL.md §4.8). Empty MilvusAddr
	// disables the Clinical AI agent's knowledge-search tools rather than
	// registering them against a store that cannot connect.
	MilvusAddr           string `yaml:"milvus_addr"`
	MilvusCollection     string `yaml:"milvus_collection"`
	EmbeddingDimension   int    `yaml:"embedding_dimension"`
	OpenAIEmbeddingModel string `yaml:"openai_embedding_model"`

	// DischargeReport store (spec.md §3.1, §4.3). Empty MongoURI keeps
	// discharge reports in repos/inmem.
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
}

// Defaults returns the configuration spec.md §6 specifies when no
// environment variable or YAML key overrides a field.
func Defaults() Config {
	return Config{
		BedCleaningDurationMinutes: 30,
		BedSweepIntervalSeconds:    120,
		OrchestratorMaxToolRounds:  6,
		ToolCallTimeoutMS:          30000,
		LLMCallTimeoutMS:           60000,
		ChatTurnTimeoutMS:          120000,
		WorkflowNodeRetryMax:       2,
		ConversationWindowSize:     32,
		SessionLRUCapacity:         10000,

		ListenAddr:     ":8080",
		WorkflowEngine: "inmem",

		LLMProviderOrder:  []string{"anthropic", "openai", "bedrock"},
		AnthropicModel:    "claude-sonnet-4-5",
		OpenAIModel:       "gpt-4o",

		MilvusCollection:     "clinical_knowledge",
		EmbeddingDimension:   1536,
		OpenAIEmbeddingModel: "text-embedding-3-small",

		MongoDatabase:   "hospitalcore",
		MongoCollection: "discharge_reports",
	}
}

// Load builds a Config from Defaults(), an optional YAML file (path taken
// from HOSPITALCORE_CONFIG_FILE, if set), and HOSPITALCORE_* environment
// variables, in that increasing order of precedence. It first loads envFile
// (if non-empty; pass "" to skip) via godotenv, which only fills variables
// not already present in the process environment, matching godotenv's own
// documented behavior and letting real environment variables win over a
// checked-in .env used for local development.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
	}

	cfg := Defaults()

	if path := os.Getenv(EnvPrefix + "CONFIG_FILE"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read yaml file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse yaml file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays HOSPITALCORE_* environment variables onto cfg. Unset
// variables leave the existing value (default or YAML-sourced) untouched.
func applyEnv(cfg *Config) error {
	var err error
	setInt := func(key string, dst *int) {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok || err != nil {
			return
		}
		n, parseErr := strconv.Atoi(v)
		if parseErr != nil {
			err = fmt.Errorf("config: %s%s: %w", EnvPrefix, key, parseErr)
			return
		}
		*dst = n
	}
	setDurationMillis := func(key string, dst *int) {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok || err != nil {
			return
		}
		if n, parseErr := strconv.Atoi(v); parseErr == nil {
			*dst = n
			return
		}
		d, parseErr := str2duration.ParseDuration(v)
		if parseErr != nil {
			err = fmt.Errorf("config: %s%s: not an integer or duration string: %w", EnvPrefix, key, parseErr)
			return
		}
		*dst = int(d.Milliseconds())
	}
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	setStringSlice := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			parts := strings.Split(v, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			*dst = parts
		}
	}

	setInt("BED_CLEANING_DURATION_MINUTES", &cfg.BedCleaningDurationMinutes)
	setInt("BED_SWEEP_INTERVAL_SECONDS", &cfg.BedSweepIntervalSeconds)
	setInt("ORCHESTRATOR_MAX_TOOL_ROUNDS", &cfg.OrchestratorMaxToolRounds)
	setDurationMillis("TOOL_CALL_TIMEOUT_MS", &cfg.ToolCallTimeoutMS)
	setDurationMillis("LLM_CALL_TIMEOUT_MS", &cfg.LLMCallTimeoutMS)
	setDurationMillis("CHAT_TURN_TIMEOUT_MS", &cfg.ChatTurnTimeoutMS)
	setInt("WORKFLOW_NODE_RETRY_MAX", &cfg.WorkflowNodeRetryMax)
	setInt("CONVERSATION_WINDOW_SIZE", &cfg.ConversationWindowSize)
	setInt("SESSION_LRU_CAPACITY", &cfg.SessionLRUCapacity)

	setString("LISTEN_ADDR", &cfg.ListenAddr)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("WORKFLOW_ENGINE", &cfg.WorkflowEngine)
	setString("TEMPORAL_HOST_PORT", &cfg.TemporalHostPort)
	setString("TEMPORAL_NAMESPACE", &cfg.TemporalNamespace)

	setStringSlice("LLM_PROVIDER_ORDER", &cfg.LLMProviderOrder)
	setString("ANTHROPIC_API_KEY", &cfg.AnthropicAPIKey)
	setString("ANTHROPIC_MODEL", &cfg.AnthropicModel)
	setString("OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	setString("OPENAI_MODEL", &cfg.OpenAIModel)
	setString("BEDROCK_DEFAULT_MODEL", &cfg.BedrockDefaultModel)
	setString("BEDROCK_REGION", &cfg.BedrockRegion)

	setString("MILVUS_ADDR", &cfg.MilvusAddr)
	setString("MILVUS_COLLECTION", &cfg.MilvusCollection)
	setInt("EMBEDDING_DIMENSION", &cfg.EmbeddingDimension)
	setString("OPENAI_EMBEDDING_MODEL", &cfg.OpenAIEmbeddingModel)

	setString("MONGO_URI", &cfg.MongoURI)
	setString("MONGO_DATABASE", &cfg.MongoDatabase)
	setString("MONGO_COLLECTION", &cfg.MongoCollection)

	return err
}
