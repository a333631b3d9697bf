package fetch

import (
	"net/url"
	"strings"
)

const ipfsScheme = "ipfs://"

// ResolveImageURI rewrites ipfs:// references onto the HTTP gateway prefix.
// Any other URI is returned unchanged.
func ResolveImageURI(raw string, gateway string) string {
	if !strings.HasPrefix(raw, ipfsScheme) {
		return raw
	}

	return gateway + strings.TrimPrefix(raw, ipfsScheme)
}

func isHTTPURI(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
