package transport

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Outcome is the closed set of ways an attempt can fail. It is derived from
// typed transport errors and HTTP status codes, never from message text.
type Outcome int

const (
	OutcomeTimeout Outcome = iota + 1
	OutcomeConnectionRefused
	OutcomeDNSFailure
	OutcomeNetworkFailure
	OutcomeCanceled
	OutcomeHTTPStatus
	OutcomeParseError
	OutcomeInvalidRequest
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTimeout:
		return "timeout"
	case OutcomeConnectionRefused:
		return "connection_refused"
	case OutcomeDNSFailure:
		return "dns_failure"
	case OutcomeNetworkFailure:
		return "network_failure"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeHTTPStatus:
		return "http_status"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Retryable reports whether an attempt that ended this way may be re-issued.
// Only outcomes where no response was received qualify: an HTTP status is a
// server decision and re-sending could duplicate a write.
func (o Outcome) Retryable() bool {
	switch o {
	case OutcomeTimeout, OutcomeConnectionRefused, OutcomeDNSFailure, OutcomeNetworkFailure:
		return true
	default:
		return false
	}
}

// classifyTransport maps an error from http.Client.Do (or from reading the
// body) to an Outcome. parent is the caller's context, attempt the per-attempt
// deadline derived from it.
func classifyTransport(parent, attempt context.Context, err error) Outcome {
	if parent.Err() != nil {
		return OutcomeCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return OutcomeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return OutcomeTimeout
		}
		return OutcomeDNSFailure
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return OutcomeConnectionRefused
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}

	return OutcomeNetworkFailure
}
