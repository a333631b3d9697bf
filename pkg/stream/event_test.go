package stream

import (
	"errors"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantURI    string
		wantMint   string
		actionable bool
		wantErr    bool
	}{
		{name: "new token", input: `{"mint":"Mint1","name":"Frog","symbol":"FRG","uri":"https://ipfs.io/ipfs/Qm1","txType":"create"}`, wantURI: "https://ipfs.io/ipfs/Qm1", wantMint: "Mint1", actionable: true},
		{name: "subscription ack", input: `{"message":"Successfully subscribed to token creation events."}`, actionable: false},
		{name: "empty uri", input: `{"uri":""}`, actionable: false},
		{name: "null uri", input: `{"uri":null}`, actionable: false},
		{name: "padded uri", input: `{"uri":"  https://x/y  "}`, wantURI: "https://x/y", actionable: true},
		{name: "non-string extras ignored", input: `{"uri":"https://x","mint":7}`, wantURI: "https://x", actionable: true},
		{name: "numeric uri", input: `{"uri":12}`, wantErr: true},
		{name: "array", input: `["uri"]`, wantErr: true},
		{name: "json null", input: `null`, wantErr: true},
		{name: "not json", input: `hello`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := parseEvent([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrProtocol) {
					t.Fatalf("parseEvent error = %v, want ErrProtocol", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEvent error = %v", err)
			}
			if event.URI != tt.wantURI {
				t.Fatalf("URI = %q, want %q", event.URI, tt.wantURI)
			}
			if event.Mint != tt.wantMint {
				t.Fatalf("Mint = %q, want %q", event.Mint, tt.wantMint)
			}
			if event.Actionable() != tt.actionable {
				t.Fatalf("Actionable() = %v, want %v", event.Actionable(), tt.actionable)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateSubscribed:   "subscribed",
		StateShuttingDown: "shutting_down",
		State(42):         "unknown",
	}

	for state, want := range tests {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
