package wfsclient

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	// KindInvalidQuery is a query rejected before any network call.
	KindInvalidQuery Kind = iota
	KindNetwork
	KindAuth
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInvalidQuery:
		return "invalid_query"
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// RequestError is the only error type returned by Client operations.
type RequestError struct {
	Op         string
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString("wfs ")
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	switch {
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

// AsRequestError unwraps err to a *RequestError.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsKind reports whether err is a RequestError of kind k.
func IsKind(err error, k Kind) bool {
	re, ok := AsRequestError(err)
	return ok && re.Kind == k
}

func invalidQuery(op string, err error) *RequestError {
	return &RequestError{Op: op, Kind: KindInvalidQuery, Message: err.Error(), Err: err}
}
