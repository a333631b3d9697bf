package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InboundEvent is the part of a feed message the pipeline acts on.
type InboundEvent struct {
	URI    string
	Mint   string
	Name   string
	Symbol string
}

// Actionable reports whether the event carries a metadata locator.
func (e InboundEvent) Actionable() bool {
	return e.URI != ""
}

// parseEvent decodes one feed message. A JSON object without uri is valid but
// not actionable; anything that is not a JSON object is an ErrProtocol.
func parseEvent(data []byte) (InboundEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return InboundEvent{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if fields == nil {
		return InboundEvent{}, fmt.Errorf("%w: message is not an object", ErrProtocol)
	}

	var event InboundEvent
	if raw, ok := fields["uri"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &event.URI); err != nil {
			return InboundEvent{}, fmt.Errorf("%w: uri field: %v", ErrProtocol, err)
		}
		event.URI = strings.TrimSpace(event.URI)
	}

	event.Mint = optionalString(fields, "mint")
	event.Name = optionalString(fields, "name")
	event.Symbol = optionalString(fields, "symbol")

	return event, nil
}

func optionalString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}

	return strings.TrimSpace(value)
}
