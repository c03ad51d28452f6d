package errors

import (
	"fmt"
	"strings"

	rpccode "google.golang.org/genproto/googleapis/rpc/code"
)

//HistoryError Error with code.
type HistoryError interface {
	Code() rpccode.Code
	Error() string
}

//UnknownError Unknown error
type UnknownError struct {
	Msg string
}

func (e *UnknownError) Error() string {
	return e.Msg
}

//Code Code of the error.
func (e *UnknownError) Code() rpccode.Code {
	return rpccode.Code_INTERNAL
}

//MalformedRequestError Error for malformed request
type MalformedRequestError struct {
	Status rpccode.Code
	Msg    string
}

func (mr *MalformedRequestError) Error() string {
	return mr.Msg
}

//Code Code of the error.
func (mr *MalformedRequestError) Code() rpccode.Code {
	return mr.Status
}

//InvalidStateError The change or its classification breaks an invariant. Not retryable.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string {
	return "invalid state: " + e.Msg
}

//Code Code of the error.
func (e *InvalidStateError) Code() rpccode.Code {
	return rpccode.Code_FAILED_PRECONDITION
}

//UnsupportedValueError A document body contains a value which cannot be diffed.
type UnsupportedValueError struct {
	Path []string
	Msg  string
}

func (e *UnsupportedValueError) Error() string {
	if len(e.Path) == 0 {
		return "unsupported value: " + e.Msg
	}
	return fmt.Sprintf("unsupported value at %q: %v", strings.Join(e.Path, "."), e.Msg)
}

//Code Code of the error.
func (e *UnsupportedValueError) Code() rpccode.Code {
	return rpccode.Code_INVALID_ARGUMENT
}

//ReservedFieldError The document uses a field name reserved for history metadata.
type ReservedFieldError struct {
	Field string
}

func (e *ReservedFieldError) Error() string {
	return fmt.Sprintf("document contains reserved field %q", e.Field)
}

//Code Code of the error.
func (e *ReservedFieldError) Code() rpccode.Code {
	return rpccode.Code_INVALID_ARGUMENT
}
