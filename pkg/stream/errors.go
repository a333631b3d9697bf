package stream

import "errors"

var (
	// ErrConnection marks dial failures and dropped connections. They are
	// recovered by reconnecting with backoff.
	ErrConnection = errors.New("stream connection error")

	// ErrProtocol marks inbound messages that cannot be interpreted. They are
	// recovered by discarding the message.
	ErrProtocol = errors.New("stream protocol error")
)
