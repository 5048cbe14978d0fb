package queryguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardComplexityBoundaries(t *testing.T) {
	// weight 1 so one extra field is exactly one complexity unit
	guard := NewGuard(WithFieldWeight(1), WithMaxComplexity(3), WithMaxDepth(10))

	t.Run("exactly_at_ceiling_is_accepted", func(t *testing.T) {
		stats, err := guard.Validate(`{ id title game }`)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Complexity)
	})

	t.Run("one_unit_above_ceiling_is_rejected", func(t *testing.T) {
		stats, err := guard.Validate(`{ id title game seller }`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrQueryTooComplex)
		assert.Equal(t, 4, stats.Complexity)
		assert.Contains(t, err.Error(), "exceeds the maximum of 3")
	})
}

func TestGuardDepthBoundaries(t *testing.T) {
	guard := NewGuard(WithMaxDepth(3))

	t.Run("exactly_at_ceiling_is_accepted", func(t *testing.T) {
		stats, err := guard.Validate(`{ accounts { seller { id } } }`)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Depth)
	})

	t.Run("one_level_deeper_is_rejected", func(t *testing.T) {
		stats, err := guard.Validate(`{ accounts { seller { listings { id } } } }`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrQueryTooDeep)
		assert.Equal(t, 4, stats.Depth)
		assert.Contains(t, err.Error(), "exceeds the maximum of 3")
	})
}

func TestGuardFieldWeightScalesComplexity(t *testing.T) {
	guard := NewGuard(WithFieldWeight(10), WithMaxComplexity(1000))
	stats, err := guard.Validate(`{ id title }`)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Complexity)
}

func TestGuardIsMonotonicAndDeterministic(t *testing.T) {
	guard := NewGuard()

	narrow, err := guard.Validate(`{ accounts { id title } }`)
	require.NoError(t, err)
	wide, err := guard.Validate(`{ accounts { id title game levelRank } }`)
	require.NoError(t, err)
	assert.Greater(t, wide.Complexity, narrow.Complexity)

	again, err := guard.Validate(`{ accounts { id title } }`)
	require.NoError(t, err)
	assert.Equal(t, narrow, again)
}

func TestGuardIgnoresBracesInStringLiterals(t *testing.T) {
	// A text scanner would count the braces inside the argument string
	// as nesting; the AST walk must not.
	guard := NewGuard(WithMaxDepth(2))
	stats, err := guard.Validate(`{ accounts(game: "braces { } { } everywhere") { id } }`)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Depth)
}

func TestGuardWalksFragments(t *testing.T) {
	guard := NewGuard(WithFieldWeight(1), WithMaxComplexity(1000))

	stats, err := guard.Validate(`
		query { accounts { ...listingFields } }
		fragment listingFields on Account { id title game }
	`)
	require.NoError(t, err)
	// accounts + three fragment fields
	assert.Equal(t, 4, stats.Complexity)
	assert.Equal(t, 2, stats.Depth)
}

func TestGuardFragmentCycleTerminates(t *testing.T) {
	guard := NewGuard()
	_, err := guard.Validate(`
		query { accounts { ...a } }
		fragment a on Account { id ...b }
		fragment b on Account { title ...a }
	`)
	// Termination is the property under test; whether a validator would
	// reject the cycle is out of the guard's scope.
	require.NoError(t, err)
}

func TestGuardRejectsMalformedQuery(t *testing.T) {
	guard := NewGuard()
	_, err := guard.Validate(`{ accounts { id `)
	assert.ErrorIs(t, err, ErrMalformedQuery)
}
