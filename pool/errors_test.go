package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MatchesKindAndCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := error(&Error{Kind: ErrCreationFailed, Key: "db", Message: "create function failed", Cause: cause})

	require.ErrorIs(t, err, ErrCreationFailed)
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, "pool: object creation failed: create function failed (key=db): connection refused", err.Error())

	wrapped := error(&AttemptError{Attempt: 3, Key: "db", Err: err})
	require.ErrorIs(t, wrapped, ErrCreationFailed)
	require.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "attempt #3")
}

func TestSettings_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, StorageSettings{}.Validate())
	assert.Error(t, StorageSettings{MaxCountPerKey: -1}.Validate())
	assert.Error(t, StorageSettings{Strategy: LoadBalancingStrategy(9)}.Validate())
	assert.NoError(t, EvictionSettings{MaxIdle: 1}.Validate())
	assert.Error(t, EvictionSettings{SweepInterval: -1}.Validate())

	assert.Equal(t, "favor_most_recently_used", FavorMostRecentlyUsed.String())
	assert.Equal(t, "marked", KillMarked.String())
}
