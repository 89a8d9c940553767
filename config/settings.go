// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/PrimeOccasion/cline/contextmgr"
)

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig
	Agent   AgentConfig
	Context ContextConfig
	Storage StorageConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// AgentConfig holds agent loop configuration.
type AgentConfig struct {
	// MaxTurns bounds the number of model round-trips in a single task.
	MaxTurns int
	// ToolTimeoutSecs is the per-tool execution timeout.
	ToolTimeoutSecs int
	// ToolMaxRetries is how many times a transient tool failure is retried.
	ToolMaxRetries int
	// WorkDir is the directory tools operate in. Empty means current directory.
	WorkDir string
}

// ContextConfig holds conversation context management tuning.
type ContextConfig struct {
	MaxContextTokens     int
	BaseThreshold        float64
	EmergencyThreshold   float64
	GrowthThreshold      float64
	HardCeiling          int
	Algorithm            string
	NonDestructive       bool
	FallbackKeepRecent   int
	LongMessageThreshold int
}

// StorageConfig holds conversation persistence configuration.
type StorageConfig struct {
	// Path is the SQLite database file. Empty means in-memory only.
	Path string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"anthropic": {"ANTHROPIC_MODEL", "claude-opus-4-5-20251101", "ANTHROPIC_API_KEY"},
	"openai":    {"OPENAI_MODEL", "gpt-5.2", "OPENAI_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from environment variables.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxTurns, err := getEnvInt("AGENT_MAX_TURNS", 25)
	if err != nil {
		return Settings{}, err
	}

	toolTimeout, err := getEnvInt("TOOL_TIMEOUT_SECS", 30)
	if err != nil {
		return Settings{}, err
	}

	toolRetries, err := getEnvInt("TOOL_MAX_RETRIES", 2)
	if err != nil {
		return Settings{}, err
	}

	contextCfg, err := loadContextConfig()
	if err != nil {
		return Settings{}, err
	}

	// Get model from environment or use default
	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Agent: AgentConfig{
			MaxTurns:        maxTurns,
			ToolTimeoutSecs: toolTimeout,
			ToolMaxRetries:  toolRetries,
			WorkDir:         os.Getenv("AGENT_WORK_DIR"),
		},
		Context: contextCfg,
		Storage: StorageConfig{
			Path: os.Getenv("STORAGE_DB_PATH"),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

func loadContextConfig() (ContextConfig, error) {
	def := contextmgr.DefaultConfig()

	maxContext, err := getEnvInt("CONTEXT_MAX_TOKENS", def.MaxContextTokens)
	if err != nil {
		return ContextConfig{}, err
	}

	baseThreshold, err := getEnvFloat64("CONTEXT_BASE_THRESHOLD", def.BaseThreshold)
	if err != nil {
		return ContextConfig{}, err
	}

	emergencyThreshold, err := getEnvFloat64("CONTEXT_EMERGENCY_THRESHOLD", def.EmergencyThreshold)
	if err != nil {
		return ContextConfig{}, err
	}

	growthThreshold, err := getEnvFloat64("CONTEXT_GROWTH_THRESHOLD", def.GrowthThreshold)
	if err != nil {
		return ContextConfig{}, err
	}

	hardCeiling, err := getEnvInt("CONTEXT_HARD_CEILING", def.HardCeiling)
	if err != nil {
		return ContextConfig{}, err
	}

	fallbackKeep, err := getEnvInt("CONTEXT_FALLBACK_KEEP_RECENT", def.FallbackKeepRecent)
	if err != nil {
		return ContextConfig{}, err
	}

	longMessage, err := getEnvInt("CONTEXT_LONG_MESSAGE_THRESHOLD", def.LongMessageThreshold)
	if err != nil {
		return ContextConfig{}, err
	}

	algorithm := os.Getenv("CONTEXT_ALGORITHM")
	if algorithm == "" {
		algorithm = "decision"
	}
	if algorithm != "decision" && algorithm != "range" {
		return ContextConfig{}, fmt.Errorf("invalid value for CONTEXT_ALGORITHM: %q (want \"decision\" or \"range\")", algorithm)
	}

	nonDestructive, err := getEnvBool("CONTEXT_NON_DESTRUCTIVE", false)
	if err != nil {
		return ContextConfig{}, err
	}

	return ContextConfig{
		MaxContextTokens:     maxContext,
		BaseThreshold:        baseThreshold,
		EmergencyThreshold:   emergencyThreshold,
		GrowthThreshold:      growthThreshold,
		HardCeiling:          hardCeiling,
		Algorithm:            algorithm,
		NonDestructive:       nonDestructive,
		FallbackKeepRecent:   fallbackKeep,
		LongMessageThreshold: longMessage,
	}, nil
}

// ContextManagerConfig converts the loaded settings into the form the
// context manager consumes.
func (c ContextConfig) ContextManagerConfig() contextmgr.Config {
	algorithm := contextmgr.AlgorithmDecision
	if c.Algorithm == "range" {
		algorithm = contextmgr.AlgorithmRange
	}
	return contextmgr.Config{
		MaxContextTokens:     c.MaxContextTokens,
		BaseThreshold:        c.BaseThreshold,
		EmergencyThreshold:   c.EmergencyThreshold,
		GrowthThreshold:      c.GrowthThreshold,
		HardCeiling:          c.HardCeiling,
		Algorithm:            algorithm,
		NonDestructive:       c.NonDestructive,
		FallbackKeepRecent:   c.FallbackKeepRecent,
		LongMessageThreshold: c.LongMessageThreshold,
	}
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}
