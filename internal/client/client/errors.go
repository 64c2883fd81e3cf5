package client

import (
	"github.com/dmitrijs2005/propscan/internal/client/transport"
)

var (
	ErrUnavailable  = transport.ErrUnavailable
	ErrUnauthorized = transport.ErrUnauthorized

	// ErrMissingToken is returned when an auth response carries no token.
	ErrMissingToken = &transport.Error{
		Outcome: transport.OutcomeParseError,
		Message: "Login failed: the server did not return a session.",
		Reason:  "auth response without access_token",
	}

	// ErrEmptyInput rejects blank arguments before any request is sent.
	ErrEmptyInput = &transport.Error{
		Outcome: transport.OutcomeInvalidRequest,
		Message: "Please enter a value.",
		Reason:  "empty input",
	}
)
