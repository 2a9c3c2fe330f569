// Package errors defines the classified failures returned by the card ledger.
// Every failure is a *DomainError (or a typed error that matches one through
// errors.Is), so callers can branch on the code and render the carried details.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure for the caller.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindPrecondition   Kind = "precondition"
	KindBusinessRule   Kind = "business_rule"
	KindInfrastructure Kind = "infrastructure"
)

// DomainError is a classified failure with optional structured details.
type DomainError struct {
	Code    string
	Message string
	Kind    Kind
	Details map[string]interface{}
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is matches any DomainError carrying the same code, so a detailed copy
// still satisfies errors.Is against the package sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// With returns a copy of e carrying the given details.
func (e *DomainError) With(details map[string]interface{}) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap returns a copy of e with err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	cp := *e
	cp.Err = err
	return &cp
}

// Coded is implemented by every error type in this package.
type Coded interface {
	error
	ErrorCode() string
	ErrorKind() Kind
}

func (e *DomainError) ErrorCode() string { return e.Code }
func (e *DomainError) ErrorKind() Kind   { return e.Kind }

// KindOf returns the classification of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var c Coded
	if stderrors.As(err, &c) {
		return c.ErrorKind()
	}
	return ""
}

// CodeOf returns the code of err, or "" for unclassified errors.
func CodeOf(err error) string {
	var c Coded
	if stderrors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// DetailsOf returns the structured details of err, if any.
func DetailsOf(err error) map[string]interface{} {
	var d interface{ ErrorDetails() map[string]interface{} }
	if stderrors.As(err, &d) {
		return d.ErrorDetails()
	}
	return nil
}

func (e *DomainError) ErrorDetails() map[string]interface{} { return e.Details }

// Is, As and New are re-exported so importers need only one errors package.
var (
	Is  = stderrors.Is
	As  = stderrors.As
	New = stderrors.New
)
