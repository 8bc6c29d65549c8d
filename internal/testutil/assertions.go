package testutil

import (
	"testing"

	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/stretchr/testify/require"
)

// RequireConfigError checks that err is a ConfigError wrapping sentinel
// and naming token.
func RequireConfigError(t *testing.T, err error, sentinel error, token string) *config.ConfigError {
	t.Helper()
	require.Error(t, err)
	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr, "want *config.ConfigError, got %T: %v", err, err)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, token, cerr.Token, "error: %v", err)
	return cerr
}
