package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		key, _, _ := strings.Cut(e, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestLoadAppliesDefaultsWithNoOverrides(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 30, cfg.BedCleaningDurationMinutes)
	require.Equal(t, 120, cfg.BedSweepIntervalSeconds)
	require.Equal(t, 6, cfg.OrchestratorMaxToolRounds)
	require.Equal(t, 30000, cfg.ToolCallTimeoutMS)
	require.Equal(t, 60000, cfg.LLMCallTimeoutMS)
	require.Equal(t, 120000, cfg.ChatTurnTimeoutMS)
	require.Equal(t, 2, cfg.WorkflowNodeRetryMax)
	require.Equal(t, 32, cfg.ConversationWindowSize)
	require.Equal(t, 10000, cfg.SessionLRUCapacity)
	require.Equal(t, "inmem", cfg.WorkflowEngine)
}

func TestLoadEnvOverridesIntegerDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"ORCHESTRATOR_MAX_TOOL_ROUNDS", "10")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 10, cfg.OrchestratorMaxToolRounds)
}

func TestLoadDurationEnvAcceptsGoDurationString(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"TOOL_CALL_TIMEOUT_MS", "45s")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 45000, cfg.ToolCallTimeoutMS)
}

func TestLoadDurationEnvAcceptsBareMilliseconds(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"TOOL_CALL_TIMEOUT_MS", "5000")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 5000, cfg.ToolCallTimeoutMS)
}

func TestLoadRejectsUnparseableDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"TOOL_CALL_TIMEOUT_MS", "not-a-duration")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadProviderOrderSplitsOnComma(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"LLM_PROVIDER_ORDER", "openai, anthropic")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"openai", "anthropic"}, cfg.LLMProviderOrder)
}

func TestLoadYAMLFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := dir + "/hospitalcore.yaml"
	require.NoError(t, os.WriteFile(path, []byte("bed_sweep_interval_seconds: 45\nworkflow_engine: temporal\n"), 0o644))
	t.Setenv(EnvPrefix+"CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 45, cfg.BedSweepIntervalSeconds)
	require.Equal(t, "temporal", cfg.WorkflowEngine)
}

func TestLoadEnvWinsOverYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := dir + "/hospitalcore.yaml"
	require.NoError(t, os.WriteFile(path, []byte("bed_sweep_interval_seconds: 45\n"), 0o644))
	t.Setenv(EnvPrefix+"CONFIG_FILE", path)
	t.Setenv(EnvPrefix+"BED_SWEEP_INTERVAL_SECONDS", "90")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 90, cfg.BedSweepIntervalSeconds)
}
