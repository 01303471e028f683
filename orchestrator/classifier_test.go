package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyComplexRequestMatchesAnalytics(t *testing.T) {
	hint, matched := classifyComplexRequest("Can you show me the admissions analytics for this week?")
	require.True(t, matched)
	require.NotEmpty(t, hint)
}

func TestClassifyComplexRequestMatchesForecast(t *testing.T) {
	hint, matched := classifyComplexRequest("Forecast how many beds we'll need tomorrow.")
	require.True(t, matched)
	require.Contains(t, hint, "projection")
}

func TestClassifyComplexRequestIsCaseInsensitive(t *testing.T) {
	_, matched := classifyComplexRequest("TRANSLATE this note IN SPANISH")
	require.True(t, matched)
}

func TestClassifyComplexRequestNoMatch(t *testing.T) {
	hint, matched := classifyComplexRequest("What bed is patient 42 in?")
	require.False(t, matched)
	require.Empty(t, hint)
}
