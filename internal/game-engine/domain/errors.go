package domain

import (
	"errors"
	"fmt"
)

// Kind classifica os erros do motor de rodadas
type Kind string

const (
	KindValidation        Kind = "validation"
	KindState             Kind = "state"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindResource          Kind = "resource"
	KindInvariant         Kind = "invariant"
)

// Error é um erro de domínio com código estável e mensagem para o usuário
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(kind Kind, code, msg string) *Error { return &Error{Kind: kind, Code: code, Msg: msg} }

var (
	// validação
	ErrRoundNotFound    = newErr(KindValidation, "round_not_found", "round not found")
	ErrInvalidSelection = newErr(KindValidation, "invalid_selection", "invalid selection")
	ErrInvalidStake     = newErr(KindValidation, "invalid_stake", "stake must be positive")
	ErrInvalidAmount    = newErr(KindValidation, "invalid_amount", "amount must be positive")
	ErrInvalidOutcome   = newErr(KindValidation, "invalid_outcome", "invalid outcome for game")
	ErrUnknownGame      = newErr(KindValidation, "unknown_game", "unknown game")
	ErrSeedNotFound     = newErr(KindValidation, "seed_not_found", "server seed not found")

	// estado
	ErrRoundClosed        = newErr(KindState, "round_closed", "betting is closed for this round")
	ErrAlreadyResolved    = newErr(KindState, "already_resolved", "round already has an outcome")
	ErrAlreadySettled     = newErr(KindState, "already_settled", "round already settled")
	ErrRoundNotResolved   = newErr(KindState, "round_not_resolved", "round has no outcome yet")
	ErrStaleRound         = newErr(KindState, "stale_round", "round state changed concurrently")
	ErrAccountInactive    = newErr(KindState, "account_inactive", "account is inactive")
	ErrActiveRoundExists  = newErr(KindState, "active_round_exists", "game already has an active round")
	ErrInvalidTransition  = newErr(KindState, "invalid_transition", "invalid round state transition")
	ErrSchedulerNotActive = newErr(KindState, "scheduler_not_running", "game scheduler is not running")
	ErrSeedNotRevealed    = newErr(KindState, "seed_not_revealed", "server seed is still in use")

	// saldo
	ErrInsufficientFunds   = newErr(KindInsufficientFunds, "insufficient_funds", "insufficient funds")
	ErrInsufficientBalance = newErr(KindInsufficientFunds, "insufficient_balance", "insufficient balance")
)

// ResourceError embrulha falhas de persistência; são as únicas elegíveis a retry
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *ResourceError) Unwrap() error { return e.Err }

// Resource embrulha err como ResourceError, preservando erros de domínio já classificados
func Resource(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	var ie *InvariantError
	var re *ResourceError
	if errors.As(err, &de) || errors.As(err, &ie) || errors.As(err, &re) {
		return err
	}
	return &ResourceError{Op: op, Err: err}
}

// InvariantError indica violação de invariante: o jogo afetado deve parar
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "invariant violated: " + e.Msg }

func Invariantf(format string, args ...any) error {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

// KindOf devolve a classificação de err; erros desconhecidos contam como resource
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	var ie *InvariantError
	if errors.As(err, &ie) {
		return KindInvariant
	}
	return KindResource
}

// Message devolve a mensagem apresentável ao usuário
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	if KindOf(err) == KindInvariant {
		return "internal error"
	}
	return "service unavailable, try again"
}
