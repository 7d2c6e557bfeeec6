// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind is the handling class of one request outcome.
type Kind int

const (
	// OK means the response carries usable data.
	OK Kind = iota
	// Transient outcomes are retried with backoff until cancelled.
	Transient
	// DataDefect means the requested identifier cannot be resolved; the
	// caller skips it and continues.
	DataDefect
	// Fatal outcomes abort the whole operation.
	Fatal
	// Unexpected outcomes stop the operation and are propagated as errors.
	Unexpected
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Transient:
		return "transient"
	case DataDefect:
		return "data_defect"
	case Fatal:
		return "fatal"
	default:
		return "unexpected"
	}
}

// ErrNoAPIKey is returned by bulk operations when no API key is configured.
var ErrNoAPIKey = errors.New("bulk operations need an API key: obtain a key from the provider and store it in .secrets")

// FetchError describes why a fetch operation stopped. Message is meant for
// display to the operator.
type FetchError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Classify maps one request outcome to a Kind plus a short status text.
// hasKey reports whether an API key was sent; without one a 429 cannot be
// waited out and is fatal.
func Classify(resp *http.Response, err error, hasKey bool) (Kind, string) {
	if err != nil {
		return classifyError(err)
	}

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return OK, ""
	case code == http.StatusBadRequest, code == http.StatusNotFound, code == http.StatusInternalServerError:
		return DataDefect, fmt.Sprintf("ERROR %d", code)
	case code == http.StatusForbidden:
		return Fatal, "API returns 403, bailing out. Is the API key expired?"
	case code == http.StatusTooManyRequests:
		if !hasKey {
			return Fatal, "API returns 429, bailing out. Obtain an API key to raise the rate limit."
		}
		return Transient, "ERROR 429"
	case code == http.StatusGatewayTimeout:
		return Transient, "ERROR 504"
	default:
		return Unexpected, fmt.Sprintf("unexpected HTTP status %d", code)
	}
}

func classifyError(err error) (Kind, string) {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return Fatal, "could not resolve host " + dnsErr.Name + ": check connectivity"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient, "TIMEOUT"
	}

	var (
		recordErr  tls.RecordHeaderError
		verifyErr  *tls.CertificateVerificationError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		alertErr   tls.AlertError
	)
	if errors.As(err, &recordErr) || errors.As(err, &verifyErr) || errors.As(err, &authErr) ||
		errors.As(err, &hostErr) || errors.As(err, &invalidErr) || errors.As(err, &alertErr) {
		return Fatal, "TLS handshake failed, possibly a proxy problem: " + err.Error()
	}

	return Unexpected, err.Error()
}
