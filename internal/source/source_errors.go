package source

import "errors"

var (
	// ErrSourceUnavailable covers transport failures, timeouts, non-2xx listing
	// responses and listings that do not parse as a file index.
	ErrSourceUnavailable = errors.New("source: unreachable or malformed listing")

	// ErrSourceRejected means the source denied access, typically because it
	// requires an identifying User-Agent and none (or a bad one) was sent.
	ErrSourceRejected = errors.New("source: access denied")
)
