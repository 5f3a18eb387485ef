// Package apierr defines the closed set of API errors returned to clients.
//
// Every error kind carries a fixed HTTP status, a domain, a reason and a
// message. Constructing an error with New produces a value that already is
// the HTTP response: its status and JSON body are fixed at construction time
// and the boundary writes them unchanged.
//
// Canonical body:
//
//	{"error": {"errors": [{"domain": D, "reason": R, "message": M}], "code": C, "message": M}}
//
// LocationNotFoundV1 is the one exception. Version 1 clients expect a 200
// with {"status": "not_found"} for a failed lookup, so that kind replaces
// both the status and the body of LocationNotFound.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
)

// Kind identifies one API error variant.
type Kind int

// Error kinds.
const (
	DailyLimitExceeded Kind = iota + 1
	InvalidAPIKey
	LocationNotFound
	LocationNotFoundV1
	ParseError
)

// variant is the full, fixed description of a Kind.
type variant struct {
	name    string
	status  int
	domain  string
	reason  string
	message string
	body    func(v variant) any
}

var variants = map[Kind]variant{
	DailyLimitExceeded: {
		name:    "DailyLimitExceeded",
		status:  http.StatusForbidden,
		domain:  "usageLimits",
		reason:  "dailyLimitExceeded",
		message: "You have exceeded your daily limit.",
		body:    canonicalBody,
	},
	InvalidAPIKey: {
		name:    "InvalidAPIKey",
		status:  http.StatusBadRequest,
		domain:  "usageLimits",
		reason:  "keyInvalid",
		message: "Missing or invalid API key.",
		body:    canonicalBody,
	},
	LocationNotFound: {
		name:    "LocationNotFound",
		status:  http.StatusNotFound,
		domain:  "geolocation",
		reason:  "notFound",
		message: "Not found",
		body:    canonicalBody,
	},
	// Deliberately a 200: version 1 clients treat any other status as a
	// transport failure.
	LocationNotFoundV1: {
		name:    "LocationNotFoundV1",
		status:  http.StatusOK,
		domain:  "geolocation",
		reason:  "notFound",
		message: "Not found",
		body:    legacyNotFoundBody,
	},
	ParseError: {
		name:    "ParseError",
		status:  http.StatusBadRequest,
		domain:  "global",
		reason:  "parseError",
		message: "Parse Error",
		body:    canonicalBody,
	},
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	return []Kind{DailyLimitExceeded, InvalidAPIKey, LocationNotFound, LocationNotFoundV1, ParseError}
}

// String returns the variant name, e.g. "ParseError".
func (k Kind) String() string {
	if v, ok := variants[k]; ok {
		return v.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrorItem is one entry of the canonical envelope's errors list.
type ErrorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ErrorDetail is the "error" member of the canonical envelope.
type ErrorDetail struct {
	Errors  []ErrorItem `json:"errors"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
}

// ErrorEnvelope is the canonical JSON error body.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// StatusBody is the version 1 not-found body.
type StatusBody struct {
	Status string `json:"status"`
}

func canonicalBody(v variant) any {
	return ErrorEnvelope{Error: ErrorDetail{
		Errors:  []ErrorItem{{Domain: v.domain, Reason: v.reason, Message: v.message}},
		Code:    v.status,
		Message: v.message,
	}}
}

func legacyNotFoundBody(variant) any {
	return StatusBody{Status: "not_found"}
}

// Error is a constructed API error. It is immutable and can be written to
// any number of responses.
type Error struct {
	kind Kind
	v    variant
	body []byte
}

// New constructs the error for kind. It panics for kinds outside the
// defined set.
func New(kind Kind) *Error {
	v, ok := variants[kind]
	if !ok {
		panic(fmt.Sprintf("apierr: undefined kind %d", int(kind)))
	}
	body, err := json.Marshal(v.body(v))
	if err != nil {
		// Bodies are fixed structs of strings and ints.
		panic(fmt.Sprintf("apierr: marshal %s: %v", v.name, err))
	}
	return &Error{kind: kind, v: v, body: body}
}

// Error implements error, e.g. "<ParseError>: 400".
func (e *Error) Error() string { return fmt.Sprintf("<%s>: %d", e.v.name, e.v.status) }

// Kind returns the variant kind.
func (e *Error) Kind() Kind { return e.kind }

// StatusCode returns the HTTP status written for this error.
func (e *Error) StatusCode() int { return e.v.status }

// Domain returns the error domain, e.g. "usageLimits".
func (e *Error) Domain() string { return e.v.domain }

// Reason returns the machine-readable reason, e.g. "keyInvalid".
func (e *Error) Reason() string { return e.v.reason }

// Message returns the human-readable message.
func (e *Error) Message() string { return e.v.message }

// JSONBody returns the structured body (ErrorEnvelope or StatusBody).
func (e *Error) JSONBody() any { return e.v.body(e.v) }

// Body returns a copy of the serialized JSON body.
func (e *Error) Body() []byte { return append([]byte(nil), e.body...) }

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.kind == e.kind
	}
	return false
}

// ServeHTTP writes the error as the complete response.
func (e *Error) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.v.status)
	_, _ = w.Write(e.body)
}

// ContextKey is the gin context key under which Abort stores the error for
// logging and metrics middleware.
const ContextKey = "apierr"

// Abort writes the error as the response and stops the gin handler chain.
func (e *Error) Abort(c *gin.Context) {
	c.Set(ContextKey, e)
	c.Data(e.v.status, "application/json; charset=utf-8", e.body)
	c.Abort()
}

// FromContext returns the error written by Abort, if any.
func FromContext(c *gin.Context) (*Error, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	e, ok := v.(*Error)
	return e, ok
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
