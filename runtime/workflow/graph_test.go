package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransientAndPermanentWrapErrors(t *testing.T) {
	base := errors.New("upstream unavailable")

	te := Transient(base)
	var nerr *NodeError
	require.ErrorAs(t, te, &nerr)
	require.Equal(t, FailureTransient, nerr.Kind)
	require.ErrorIs(t, te, base)

	pe := Permanent(base)
	require.ErrorAs(t, pe, &nerr)
	require.Equal(t, FailurePermanent, nerr.Kind)
	require.ErrorIs(t, pe, base)
}

func TestTransientAndPermanentNilPassthrough(t *testing.T) {
	require.NoError(t, Transient(nil))
	require.NoError(t, Permanent(nil))
}
