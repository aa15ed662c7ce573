package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/metrics"
)

type GateState string

const (
	GateIdle       GateState = "idle"
	GateVerifying  GateState = "verifying"
	GateVerified   GateState = "verified"
	GateCompleting GateState = "completing"
	GateCompleted  GateState = "completed"
	GateFailed     GateState = "failed"
)

type GateEvent string

const (
	EventVerify    GateEvent = "verify"
	EventSkip      GateEvent = "skip"
	EventVerified  GateEvent = "verified"
	EventComplete  GateEvent = "complete"
	EventCompleted GateEvent = "completed"
	EventFail      GateEvent = "fail"
	EventRetry     GateEvent = "retry"
)

var ErrInvalidTransition = errors.New("invalid gate transition")

var gateTransitions = map[GateState]map[GateEvent]GateState{
	GateIdle: {
		EventVerify: GateVerifying,
		EventSkip:   GateVerified,
	},
	GateVerifying: {
		EventVerified: GateVerified,
		EventFail:     GateFailed,
	},
	GateVerified: {
		EventComplete: GateCompleting,
	},
	GateCompleting: {
		EventCompleted: GateCompleted,
		EventFail:      GateFailed,
	},
	GateFailed: {
		EventRetry: GateIdle,
	},
}

// NextGateState is the gate's state machine. GateCompleted has no way out.
func NextGateState(from GateState, ev GateEvent) (GateState, error) {
	to, ok := gateTransitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
	}
	return to, nil
}

// Verifier checks a bot verification token.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// Gate guards the one-way move of a submission to completed.
type Gate struct {
	store    Store
	verifier Verifier
	now      func() time.Time
	state    GateState
}

// NewGate returns a gate in the idle state. A nil verifier disables the bot check.
func NewGate(store Store, verifier Verifier) *Gate {
	return &Gate{store: store, verifier: verifier, now: time.Now, state: GateIdle}
}

func (g *Gate) RequiresVerification() bool {
	return g.verifier != nil
}

func (g *Gate) State() GateState {
	return g.state
}

func (g *Gate) fire(ev GateEvent) {
	to, err := NextGateState(g.state, ev)
	if err != nil {
		// transitions are driven only by Complete; reaching here is a bug
		panic(err)
	}
	g.state = to
}

// Complete verifies token when required and marks the submission complete. On
// failure the gate is left in GateFailed and the next call starts over.
func (g *Gate) Complete(ctx context.Context, submissionID, token string) error {
	switch g.state {
	case GateCompleted:
		return nil
	case GateFailed:
		g.fire(EventRetry)
	}

	if g.verifier == nil {
		g.fire(EventSkip)
	} else {
		if token == "" {
			metrics.FlowErrors.WithLabelValues("verification").Inc()
			return &VerificationError{Err: ErrVerificationPending}
		}
		g.fire(EventVerify)
		ok, err := g.verifier.Verify(ctx, token)
		if err != nil || !ok {
			g.fire(EventFail)
			metrics.FlowErrors.WithLabelValues("verification").Inc()
			if err == nil {
				err = ErrVerificationRejected
			} else {
				err = fmt.Errorf("%w: %v", ErrVerificationRejected, err)
			}
			log.WithFields(log.Fields{"submission": submissionID}).Warn("verification failed: ", err)
			return &VerificationError{Err: err}
		}
		g.fire(EventVerified)
	}

	g.fire(EventComplete)
	if err := g.store.CompleteSubmission(ctx, submissionID, g.now().UTC()); err != nil {
		g.fire(EventFail)
		return persistence("db.complete_submission", err)
	}
	g.fire(EventCompleted)
	metrics.SubmissionsCompleted.Inc()
	log.WithFields(log.Fields{"submission": submissionID}).Info("submission completed")
	return nil
}
