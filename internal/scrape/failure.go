package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FailureKind is the enumerated failure contract browser collaborators report.
type FailureKind int

// Failure kinds understood by the classifier.
const (
	KindUnknown FailureKind = iota
	KindTimeout
	KindNameNotResolved
	KindConnectionRefused
	KindCertificate
)

// StatusSSLCertificateError is the non-standard status used for certificate failures.
const StatusSSLCertificateError = 526

// Client-facing failure messages.
const (
	MsgTimeout           = "Request timeout - the page took too long to load"
	MsgNameNotResolved   = "URL not found or domain does not exist"
	MsgConnectionRefused = "Connection refused by the target server"
	MsgCertificate       = "SSL certificate error"
	MsgInternal          = "Internal server error"
)

func (k FailureKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNameNotResolved:
		return "name_not_resolved"
	case KindConnectionRefused:
		return "connection_refused"
	case KindCertificate:
		return "certificate"
	default:
		return "unknown"
	}
}

// Failure is a structured descriptor for an error raised by the browser.
// Code carries the engine's own identifier (for Chrome, the net::ERR_* text)
// for logging; classification only looks at Kind.
type Failure struct {
	Kind FailureKind
	Code string
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	switch {
	case f.Code != "" && f.Err != nil:
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Code, f.Err)
	case f.Code != "":
		return fmt.Sprintf("%s: %s", f.Op, f.Code)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Op, f.Err)
	default:
		return f.Op + ": " + f.Kind.String()
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf reports the failure kind carried by err. Deadline expiry anywhere in
// the chain counts as a timeout even when no Failure wraps it.
func KindOf(err error) FailureKind {
	var failure *Failure
	if errors.As(err, &failure) && failure.Kind != KindUnknown {
		return failure.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// Classification is the HTTP status and message chosen for a failure.
type Classification struct {
	Status  int
	Message string
	Kind    FailureKind
}

// Classifier maps pipeline failures onto HTTP semantics.
type Classifier interface {
	Classify(err error) Classification
}

// Rule matches one failure kind to a response. Rules are checked in order.
type Rule struct {
	Kind    FailureKind
	Status  int
	Message string
}

// RuleClassifier applies an ordered rule table; the first matching rule wins.
type RuleClassifier struct {
	Rules    []Rule
	Fallback Classification
}

// DefaultClassifier reproduces the service's status mapping.
var DefaultClassifier = RuleClassifier{
	Rules: []Rule{
		{Kind: KindTimeout, Status: http.StatusRequestTimeout, Message: MsgTimeout},
		{Kind: KindNameNotResolved, Status: http.StatusNotFound, Message: MsgNameNotResolved},
		{Kind: KindConnectionRefused, Status: http.StatusServiceUnavailable, Message: MsgConnectionRefused},
		{Kind: KindCertificate, Status: StatusSSLCertificateError, Message: MsgCertificate},
	},
	Fallback: Classification{Status: http.StatusInternalServerError, Message: MsgInternal},
}

// Classify returns the first rule matching the kind of err, or the fallback.
func (c RuleClassifier) Classify(err error) Classification {
	kind := KindOf(err)
	for _, rule := range c.Rules {
		if rule.Kind == kind {
			return Classification{Status: rule.Status, Message: rule.Message, Kind: kind}
		}
	}
	fallback := c.Fallback
	fallback.Kind = kind
	return fallback
}
