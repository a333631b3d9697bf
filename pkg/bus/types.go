package bus

import (
	"image"
	"strings"
	"time"
)

// Artifact is one decoded, canonically sized token image.
//
// Producers must not mutate Image after the artifact is pushed.
type Artifact struct {
	Image       *image.RGBA `json:"-"`
	MetadataURI string      `json:"metadata_uri"`
	ImageURI    string      `json:"image_uri"`
	Mint        string      `json:"mint,omitempty"`
	Name        string      `json:"name,omitempty"`
	Symbol      string      `json:"symbol,omitempty"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// Key identifies the artifact for logs and file names.
func (a Artifact) Key() string {
	if mint := strings.TrimSpace(a.Mint); mint != "" {
		return mint
	}

	return a.MetadataURI
}
