package asic0x

import (
	"errors"
	"fmt"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is, or wraps, an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	var ue unrecoverableError
	return !errors.As(err, &ue)
}

var (
	ErrResetFailed       = errors.New("reset failed")
	ErrEndpointDiscovery = errors.New("endpoint discovery failed")
	ErrSetupRead         = errors.New("setup data read failed")
	ErrInvalidModemType  = errors.New("invalid modem type")
	ErrConfigSend        = errors.New("configuration send failed")
	ErrIncompleteConfig  = errors.New("incomplete configuration data")

	ErrNotReady          = errors.New("adapter not ready, bring-up has not completed")
	ErrBringUpInProgress = errors.New("bring-up already in progress")
	ErrNilTransport      = errors.New("transport is nil")
	ErrClosed            = errors.New("adapter closed")
)

// Step names one stage of the device bring-up sequence.
type Step int

const (
	StepReset Step = iota
	StepEndpoints
	StepIdentity
	StepModemType
	StepAddress
	StepConfigure
)

func (s Step) String() string {
	switch s {
	case StepReset:
		return "reset"
	case StepEndpoints:
		return "endpoint discovery"
	case StepIdentity:
		return "identity query"
	case StepModemType:
		return "modem type validation"
	case StepAddress:
		return "address extraction"
	case StepConfigure:
		return "link configuration"
	default:
		return "unknown"
	}
}

// HandshakeError reports the bring-up step that failed.
type HandshakeError struct {
	Step Step
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ModemTypeError carries the unrecognized variant code from the identity response.
type ModemTypeError struct {
	Code byte
}

func (e *ModemTypeError) Error() string {
	return fmt.Sprintf("%v %02x detected", ErrInvalidModemType, e.Code)
}

func (e *ModemTypeError) Unwrap() error {
	return ErrInvalidModemType
}
