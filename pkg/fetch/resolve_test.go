package fetch

import "testing"

func TestResolveImageURI(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		gateway string
		want    string
	}{
		{name: "ipfs path", input: "ipfs://abc/def", gateway: "https://ipfs.io/ipfs/", want: "https://ipfs.io/ipfs/abc/def"},
		{name: "ipfs cid only", input: "ipfs://bafybeigdyrzt", gateway: "https://ipfs.io/ipfs/", want: "https://ipfs.io/ipfs/bafybeigdyrzt"},
		{name: "custom gateway", input: "ipfs://abc", gateway: "http://127.0.0.1:8080/ipfs/", want: "http://127.0.0.1:8080/ipfs/abc"},
		{name: "https passthrough", input: "https://cdn.example/a.png", gateway: "https://ipfs.io/ipfs/", want: "https://cdn.example/a.png"},
		{name: "uppercase scheme passthrough", input: "IPFS://abc", gateway: "https://ipfs.io/ipfs/", want: "IPFS://abc"},
		{name: "no trimming", input: " ipfs://abc", gateway: "https://ipfs.io/ipfs/", want: " ipfs://abc"},
		{name: "only prefix replaced", input: "ipfs://abc/ipfs://def", gateway: "https://ipfs.io/ipfs/", want: "https://ipfs.io/ipfs/abc/ipfs://def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveImageURI(tt.input, tt.gateway); got != tt.want {
				t.Fatalf("ResolveImageURI(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsHTTPURI(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "https://example.com/x", want: true},
		{input: "http://127.0.0.1:9/x", want: true},
		{input: "ftp://example.com/x", want: false},
		{input: "ipfs://abc", want: false},
		{input: "https://", want: false},
		{input: "not a uri", want: false},
	}

	for _, tt := range tests {
		if got := isHTTPURI(tt.input); got != tt.want {
			t.Fatalf("isHTTPURI(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
