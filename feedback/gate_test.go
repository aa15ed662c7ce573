package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNextGateState(t *testing.T) {
	path := []struct {
		ev GateEvent
		to GateState
	}{
		{EventVerify, GateVerifying},
		{EventFail, GateFailed},
		{EventRetry, GateIdle},
		{EventSkip, GateVerified},
		{EventComplete, GateCompleting},
		{EventCompleted, GateCompleted},
	}
	state := GateIdle
	for _, step := range path {
		next, err := NextGateState(state, step.ev)
		require.NoError(t, err, "%s on %s", step.ev, state)
		assert.Equal(t, step.to, next)
		state = next
	}

	for _, ev := range []GateEvent{EventVerify, EventSkip, EventVerified, EventComplete, EventCompleted, EventFail, EventRetry} {
		next, err := NextGateState(GateCompleted, ev)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, GateCompleted, next)
	}

	_, err := NextGateState(GateIdle, EventComplete)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func createdSubmission(t *testing.T, store *fakeStore) string {
	t.Helper()
	id, err := store.CreateSubmission(context.Background(), "form-1", nil)
	require.NoError(t, err)
	return id
}

func TestGateWithoutVerifier(t *testing.T) {
	store := newFakeStore()
	id := createdSubmission(t, store)
	at := time.Date(2026, 3, 1, 20, 30, 0, 0, time.UTC)

	gate := NewGate(store, nil)
	gate.now = func() time.Time { return at }
	assert.False(t, gate.RequiresVerification())

	require.NoError(t, gate.Complete(context.Background(), id, ""))
	assert.Equal(t, GateCompleted, gate.State())
	assert.Equal(t, at, *store.submissions[id].completedAt)

	// a completed gate does not write again
	require.NoError(t, gate.Complete(context.Background(), id, ""))
	assert.Equal(t, 1, store.submissions[id].completions)
}

func TestGateVerification(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	id := createdSubmission(t, store)

	verifier := new(mockVerifier)
	verifier.On("Verify", mock.Anything, "bad-token").Return(false, nil).Once()
	verifier.On("Verify", mock.Anything, "good-token").Return(true, nil).Once()

	gate := NewGate(store, verifier)
	assert.True(t, gate.RequiresVerification())

	err := gate.Complete(ctx, id, "")
	assert.ErrorIs(t, err, ErrVerificationPending)
	assert.Equal(t, GateIdle, gate.State())

	err = gate.Complete(ctx, id, "bad-token")
	var verification *VerificationError
	require.ErrorAs(t, err, &verification)
	assert.ErrorIs(t, err, ErrVerificationRejected)
	assert.Equal(t, GateFailed, gate.State())
	assert.Nil(t, store.submissions[id].completedAt)
	assert.Equal(t, "Verifica di sicurezza fallita. Riprova.", Message(err))

	require.NoError(t, gate.Complete(ctx, id, "good-token"))
	assert.Equal(t, GateCompleted, gate.State())
	assert.NotNil(t, store.submissions[id].completedAt)

	verifier.AssertExpectations(t)
}

func TestGateVerifierError(t *testing.T) {
	store := newFakeStore()
	id := createdSubmission(t, store)

	verifier := new(mockVerifier)
	verifier.On("Verify", mock.Anything, "tok").Return(false, errors.New("timeout"))

	err := NewGate(store, verifier).Complete(context.Background(), id, "tok")
	assert.ErrorIs(t, err, ErrVerificationRejected)
	assert.Nil(t, store.submissions[id].completedAt)
}

func TestGateStoreFailure(t *testing.T) {
	store := newFakeStore()
	gate := NewGate(store, nil)

	err := gate.Complete(context.Background(), "missing", "")
	var persist *PersistenceError
	require.ErrorAs(t, err, &persist)
	assert.Equal(t, "db.complete_submission", persist.Op)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
	assert.Equal(t, GateFailed, gate.State())
}
