package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duriyam/operate/internal/shared"
)

func TestLookupErrorOnlyMissingUserIsInvalidCredentials(t *testing.T) {
	require.ErrorIs(t, lookupError(shared.ErrNotFound), shared.ErrInvalidCredentials)
	require.ErrorIs(t, lookupError(fmt.Errorf("scan: %w", shared.ErrNotFound)), shared.ErrInvalidCredentials)

	err := lookupError(errors.New("dial tcp 127.0.0.1:5432: connection refused"))
	require.ErrorIs(t, err, shared.ErrUpstream)
	require.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}
