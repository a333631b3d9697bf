// Package fetch resolves a token metadata URI into a decoded image artifact.
//
// A fetch is two sequential HTTP GETs, each bounded by its own timeout: the
// metadata document, then the image it references. Every failure is returned
// as a value; callers decide whether to log, count or ignore it.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"mintfeed/pkg/bus"
	"mintfeed/pkg/config"
)

const defaultUserAgent = "mintfeed/1.0"

// Metadata is the subset of a token metadata document used by the pipeline.
type Metadata struct {
	Image  string `json:"image"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Fetcher performs the metadata and image fetches for one event at a time.
type Fetcher struct {
	client           *retryablehttp.Client
	gateway          string
	timeout          time.Duration
	size             int
	maxMetadataBytes int64
	maxImageBytes    int64
	userAgent        string
	log              *slog.Logger
	now              func() time.Time
}

// New builds a Fetcher from fetch configuration.
func New(cfg config.FetchConfig, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "fetch.fetcher")

	client := retryablehttp.NewClient()
	client.RetryMax = max(cfg.Retries, 0)
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = log
	// Status handling happens here, so the raw response is always passed back.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout * time.Second
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Fetcher{
		client:           client,
		gateway:          orDefault(cfg.IPFSGateway, config.DefaultIPFSGateway),
		timeout:          timeout,
		size:             positiveOr(cfg.ImageSize, config.DefaultImageSize),
		maxMetadataBytes: int64(positiveOr(int(cfg.MaxMetadataBytes), config.DefaultMaxMetadataBytes)),
		maxImageBytes:    int64(positiveOr(int(cfg.MaxImageBytes), config.DefaultMaxImageBytes)),
		userAgent:        userAgent,
		log:              log,
		now:              time.Now,
	}
}

// Fetch resolves metadataURI into an artifact.
//
// It returns ErrNoImage when the metadata has no image, and *Error for every
// failed step.
func (f *Fetcher) Fetch(ctx context.Context, metadataURI string) (bus.Artifact, error) {
	meta, err := f.FetchMetadata(ctx, metadataURI)
	if err != nil {
		return bus.Artifact{}, err
	}

	if meta.Image == "" {
		return bus.Artifact{}, ErrNoImage
	}

	imageURI := ResolveImageURI(meta.Image, f.gateway)
	f.log.Debug("Fetching image", "metadata_uri", metadataURI, "image_uri", imageURI)

	img, err := f.FetchImage(ctx, imageURI)
	if err != nil {
		return bus.Artifact{}, err
	}

	return bus.Artifact{
		Image:       img,
		MetadataURI: metadataURI,
		ImageURI:    imageURI,
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		FetchedAt:   f.now().UTC(),
	}, nil
}

// FetchMetadata downloads and parses the metadata document.
func (f *Fetcher) FetchMetadata(ctx context.Context, uri string) (Metadata, error) {
	start := time.Now()
	body, err := f.get(ctx, StageMetadata, uri, f.maxMetadataBytes)
	observe(StageMetadata, start, err)
	if err != nil {
		return Metadata{}, err
	}

	meta, err := parseMetadata(body)
	if err != nil {
		return Metadata{}, newError(StageMetadata, ErrorInvalidMetadata, uri, err)
	}

	return meta, nil
}

// FetchImage downloads an image and returns it decoded at the canonical size.
func (f *Fetcher) FetchImage(ctx context.Context, uri string) (*image.RGBA, error) {
	start := time.Now()
	body, err := f.get(ctx, StageImage, uri, f.maxImageBytes)
	observe(StageImage, start, err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	img, err := decodeAndResize(body, f.size)
	if err != nil {
		err = newError(StageDecode, ErrorDecode, uri, err)
	}
	observe(StageDecode, start, err)

	return img, err
}

func (f *Fetcher) get(ctx context.Context, stage Stage, uri string, limit int64) ([]byte, error) {
	if !isHTTPURI(uri) {
		return nil, newError(stage, ErrorUnsupportedScheme, uri, nil)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, newError(stage, ErrorTransport, uri, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, transportError(stage, uri, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr := newError(stage, ErrorStatus, uri, nil)
		fetchErr.StatusCode = resp.StatusCode
		return nil, fetchErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, transportError(stage, uri, err)
	}
	if int64(len(body)) > limit {
		return nil, newError(stage, ErrorTooLarge, uri, fmt.Errorf("body exceeds %d bytes", limit))
	}

	return body, nil
}

// parseMetadata requires a JSON object; an image field, when present, must be a string.
func parseMetadata(body []byte) (Metadata, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Metadata{}, err
	}
	if fields == nil {
		return Metadata{}, errors.New("metadata is not an object")
	}

	var meta Metadata
	if raw, ok := fields["image"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &meta.Image); err != nil {
			return Metadata{}, fmt.Errorf("image field: %w", err)
		}
	}

	// name and symbol are labels only; a malformed value is ignored.
	_ = json.Unmarshal(fields["name"], &meta.Name)
	_ = json.Unmarshal(fields["symbol"], &meta.Symbol)

	return meta, nil
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func positiveOr(value int, fallback int) int {
	if value <= 0 {
		return fallback
	}

	return value
}
