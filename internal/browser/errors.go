package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/pagescrape/internal/scrape"
)

// Chrome network error codes with a dedicated failure kind.
const (
	codeNameNotResolved   = "net::ERR_NAME_NOT_RESOLVED"
	codeConnectionRefused = "net::ERR_CONNECTION_REFUSED"
	codeCertPrefix        = "net::ERR_CERT_"
)

// kindForCode maps a Chrome net::ERR_* identifier onto a failure kind.
func kindForCode(code string) scrape.FailureKind {
	switch {
	case strings.Contains(code, codeNameNotResolved):
		return scrape.KindNameNotResolved
	case strings.Contains(code, codeConnectionRefused):
		return scrape.KindConnectionRefused
	case strings.Contains(code, codeCertPrefix):
		return scrape.KindCertificate
	default:
		return scrape.KindUnknown
	}
}

func navigationFailure(code string) *scrape.Failure {
	return &scrape.Failure{Kind: kindForCode(code), Code: code, Op: "navigate"}
}

// asFailure attaches op to err and promotes deadline expiry to a timeout
// failure. Failures already carrying a kind are returned unchanged.
func asFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var failure *scrape.Failure
	if errors.As(err, &failure) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &scrape.Failure{Kind: scrape.KindTimeout, Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
