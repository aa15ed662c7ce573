package feedback

import (
	"errors"
	"fmt"
)

var (
	ErrRequired     = errors.New("answer required")
	ErrInvalidValue = errors.New("invalid answer")
	ErrTooLong      = errors.New("answer too long")

	ErrVerificationPending  = errors.New("verification token not available yet")
	ErrVerificationRejected = errors.New("verification rejected")

	// ErrSubmissionClosed is returned by a Store writing to a completed submission.
	ErrSubmissionClosed = errors.New("submission already completed")
	// ErrSubmissionNotFound is returned by a Store when the submission row is gone.
	ErrSubmissionNotFound = errors.New("submission not found")
)

// ValidationError means the visitor's answer cannot be accepted as given.
type ValidationError struct {
	QuestionID string
	Err        error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %s: %v", e.QuestionID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed read or write against the remote store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// VerificationError means the bot check did not pass.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification: %v", e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Message returns the text shown to the visitor for an error of the flow.
func Message(err error) string {
	var validation *ValidationError
	var verification *VerificationError
	var persist *PersistenceError

	switch {
	case errors.As(err, &validation):
		switch {
		case errors.Is(err, ErrRequired):
			return "Questa domanda è obbligatoria"
		case errors.Is(err, ErrTooLong):
			return fmt.Sprintf("Il testo può contenere al massimo %d caratteri", MaxTextLength)
		default:
			return "Risposta non valida"
		}
	case errors.As(err, &verification):
		if errors.Is(err, ErrVerificationPending) {
			return "Verifica di sicurezza in corso. Attendi un momento."
		}
		return "Verifica di sicurezza fallita. Riprova."
	case errors.As(err, &persist):
		return "Errore nel salvare la risposta. Riprova."
	}
	return "Si è verificato un errore. Riprova."
}
