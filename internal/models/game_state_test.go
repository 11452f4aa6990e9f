package models

import (
	"testing"
	"time"

	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGameState(t *testing.T) {
	state := NewGameState()

	assert.Equal(t, 0, state.Level())
	assert.Equal(t, "", state.PathCode())
	assert.Empty(t, state.Decisions())
	assert.True(t, state.CanChoose())
	assert.False(t, state.IsComplete())
	assert.Equal(t, MaxLevel, state.Remaining())
}

func TestAppendDecisionBuildsPath(t *testing.T) {
	state := NewGameState()
	path := []Decision{DecisionRed, DecisionBlue, DecisionRed, DecisionRed, DecisionBlue, DecisionBlue}

	for i, d := range path {
		level, err := state.AppendDecision(d)
		require.NoError(t, err)
		assert.Equal(t, i+1, level)
		assert.Equal(t, level, state.Level())
		assert.Len(t, state.PathCode(), level)
	}

	assert.Equal(t, "RBRRBB", state.PathCode())
	assert.Equal(t, path, state.Path())
	assert.True(t, state.IsComplete())
	assert.False(t, state.CanChoose())
	assert.Equal(t, 0, state.Remaining())
	assert.Equal(t, 3, state.Count(DecisionRed))
	assert.Equal(t, 3, state.Count(DecisionBlue))
}

func TestAppendDecisionRecordsLevelAndTime(t *testing.T) {
	fixed := time.Date(2025, 7, 17, 15, 42, 0, 0, time.UTC)
	state := NewGameState()
	state.now = func() time.Time { return fixed }

	_, err := state.AppendDecision(DecisionBlue)
	require.NoError(t, err)
	_, err = state.AppendDecision(DecisionRed)
	require.NoError(t, err)

	records := state.Decisions()
	require.Len(t, records, 2)
	assert.Equal(t, DecisionRecord{Decision: DecisionBlue, Level: 0, MadeAt: fixed}, records[0])
	assert.Equal(t, 1, records[1].Level)

	// 返回的是副本
	records[0].Decision = DecisionRed
	assert.Equal(t, "BR", state.PathCode())
}

func TestAppendDecisionWhenComplete(t *testing.T) {
	state := NewGameState()
	for _, d := range []Decision{DecisionRed, DecisionBlue, DecisionRed, DecisionBlue, DecisionRed, DecisionBlue} {
		_, err := state.AppendDecision(d)
		require.NoError(t, err)
	}

	for _, d := range AllDecisions() {
		level, err := state.AppendDecision(d)
		require.Error(t, err)
		assert.True(t, apperrors.IsAlreadyCompleteError(err))
		assert.Equal(t, MaxLevel, level)
		assert.Equal(t, "RBRBRB", state.PathCode())
		assert.Len(t, state.Decisions(), MaxLevel)
	}
}

func TestAppendInvalidDecision(t *testing.T) {
	state := NewGameState()
	_, err := state.AppendDecision(Decision('X'))
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, 0, state.Level())
}

func TestReset(t *testing.T) {
	state := NewGameState()
	_, _ = state.AppendDecision(DecisionRed)
	_, _ = state.AppendDecision(DecisionBlue)

	state.Reset()

	assert.Equal(t, 0, state.Level())
	assert.Equal(t, "", state.PathCode())
	assert.Empty(t, state.Decisions())
	assert.True(t, state.CanChoose())
	assert.False(t, state.IsComplete())

	level, err := state.AppendDecision(DecisionBlue)
	require.NoError(t, err)
	assert.Equal(t, 1, level)
	assert.Equal(t, "B", state.PathCode())
}

func TestResetFromComplete(t *testing.T) {
	state := NewGameState()
	for i := 0; i < MaxLevel; i++ {
		_, _ = state.AppendDecision(DecisionRed)
	}
	require.True(t, state.IsComplete())

	state.Reset()
	assert.Equal(t, 0, state.Level())
	assert.True(t, state.CanChoose())
}
