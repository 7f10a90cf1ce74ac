package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_HappyPath(t *testing.T) {
	m := NewProcessingBuilder().Build(StateReceived)

	steps := []struct {
		trigger Trigger
		want    State
	}{
		{TriggerExtracted, StateExtracted},
		{TriggerValidated, StateValidated},
		{TriggerTriaged, StateTriaged},
		{TriggerStage, StateStaged},
	}
	for _, s := range steps {
		require.NoError(t, m.Fire(context.Background(), s.trigger))
		assert.Equal(t, s.want, m.State())
	}
	assert.True(t, m.State().IsTerminal())
}

func TestStateMachine_InvalidTransition(t *testing.T) {
	m := NewProcessingBuilder().Build(StateReceived)

	err := m.Fire(context.Background(), TriggerStage)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateReceived, m.State(), "failed fire must not change state")
}

func TestStateMachine_TerminalStatesHaveNoTransitions(t *testing.T) {
	for _, terminal := range []State{StateStaged, StateEscalated, StateFailed} {
		t.Run(terminal.String(), func(t *testing.T) {
			m := NewProcessingBuilder().Build(terminal)
			assert.Empty(t, m.PermittedTriggers())

			err := m.Fire(context.Background(), TriggerResume)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestStateMachine_RetryReentersFailedStep(t *testing.T) {
	m := NewProcessingBuilder().Build(StateExtracted)

	// validation fails, instance parks in retry
	require.NoError(t, m.Fire(context.Background(), TriggerRetry))
	assert.Equal(t, StateRetry, m.State())

	// successful re-run completes the step from the retry state
	require.NoError(t, m.Fire(context.Background(), TriggerValidated))
	assert.Equal(t, StateValidated, m.State())
}

func TestStateMachine_ReviewResumesToTriaged(t *testing.T) {
	m := NewProcessingBuilder().Build(StateTriaged)

	require.NoError(t, m.Fire(context.Background(), TriggerRequestReview))
	assert.Equal(t, StateReview, m.State())

	require.NoError(t, m.Fire(context.Background(), TriggerResume))
	assert.Equal(t, StateTriaged, m.State())
}

func TestStateMachine_ReviewRejectFails(t *testing.T) {
	m := NewProcessingBuilder().Build(StateReview)

	require.NoError(t, m.Fire(context.Background(), TriggerFail))
	assert.Equal(t, StateFailed, m.State())
}

func TestStateMachine_AutoResolveResumesToValidated(t *testing.T) {
	m := NewProcessingBuilder().Build(StateTriaged)

	require.NoError(t, m.Fire(context.Background(), TriggerResume))
	assert.Equal(t, StateValidated, m.State())
}

func TestStateMachine_EscalateFromAnyNonTerminal(t *testing.T) {
	for _, from := range []State{StateReceived, StateExtracted, StateValidated, StateTriaged, StateRetry, StateReview} {
		t.Run(from.String(), func(t *testing.T) {
			m := NewProcessingBuilder().Build(from)
			require.NoError(t, m.Fire(context.Background(), TriggerEscalate))
			assert.Equal(t, StateEscalated, m.State())
		})
	}
}

func TestStateMachine_GuardBlocksTransition(t *testing.T) {
	b := NewBuilder()
	allowed := false
	b.Configure(StateReceived).
		PermitIf(TriggerExtracted, StateExtracted, func(ctx context.Context) bool {
			return allowed
		})

	m := b.Build(StateReceived)

	err := m.Fire(context.Background(), TriggerExtracted)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGuardFailed)
	assert.Equal(t, StateReceived, m.State())

	allowed = true
	require.NoError(t, m.Fire(context.Background(), TriggerExtracted))
	assert.Equal(t, StateExtracted, m.State())
}

func TestBuilder_BuildIsolatesMachines(t *testing.T) {
	b := NewProcessingBuilder()
	m1 := b.Build(StateReceived)
	m2 := b.Build(StateReceived)

	require.NoError(t, m1.Fire(context.Background(), TriggerExtracted))
	assert.Equal(t, StateExtracted, m1.State())
	assert.Equal(t, StateReceived, m2.State(), "machines must not share state")
}

func TestState_IsValid(t *testing.T) {
	assert.True(t, StateReceived.IsValid())
	assert.False(t, State("BOGUS").IsValid())
}
