// Package sticker downloads window-sticker PDFs from the manufacturer site
// and recognises the placeholder document served for unknown VINs.
package sticker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURLTemplate is the manufacturer endpoint. %s is replaced with the
// query-escaped VIN.
const DefaultURLTemplate = "https://www.alfaromeousa.com/hostd/windowsticker/getWindowStickerPdf.do?vin=%s"

// UnavailableMarker is printed on page one of the placeholder PDF.
const UnavailableMarker = "Sorry, a Window Sticker is unavailable for this VIN"

// ErrFetch is returned for transport errors, non-200 responses, oversized
// bodies and documents whose text cannot be read.
var ErrFetch = errors.New("sticker: fetch failed")

// Result is a downloaded sticker.
type Result struct {
	VIN string
	// PDF is the raw document. It is nil when Unavailable is true.
	PDF []byte
	// Unavailable reports that the site has no sticker for the VIN.
	Unavailable bool
}

// TextExtractor returns the plain text of the first page of a PDF.
type TextExtractor func(pdf []byte) (string, error)

// Client fetches stickers over HTTP.
type Client struct {
	HTTP        *http.Client
	URLTemplate string
	MaxBytes    int64
	Extract     TextExtractor
}

// New returns a Client with the given template, timeout and body limit.
// Zero values fall back to DefaultURLTemplate, 30s and 20 MiB.
func New(urlTemplate string, timeout time.Duration, maxBytes int64) *Client {
	if strings.TrimSpace(urlTemplate) == "" {
		urlTemplate = DefaultURLTemplate
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Client{
		HTTP:        &http.Client{Timeout: timeout},
		URLTemplate: urlTemplate,
		MaxBytes:    maxBytes,
		Extract:     FirstPageText,
	}
}

// Fetch downloads the sticker for vin.
func (c *Client) Fetch(ctx context.Context, vin string) (*Result, error) {
	endpoint := fmt.Sprintf(c.URLTemplate, url.QueryEscape(vin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/pdf")

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: document larger than %d bytes", ErrFetch, limit)
	}

	extract := c.Extract
	if extract == nil {
		extract = FirstPageText
	}
	text, err := extract(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse pdf: %v", ErrFetch, err)
	}

	if IsUnavailable(text) {
		return &Result{VIN: vin, Unavailable: true}, nil
	}
	return &Result{VIN: vin, PDF: body}, nil
}

// IsUnavailable reports whether text is the placeholder page. Whitespace is
// collapsed because PDF text extraction splits lines unpredictably.
func IsUnavailable(text string) bool {
	return strings.Contains(strings.Join(strings.Fields(text), " "), UnavailableMarker)
}

// Filename is the attachment name used when delivering a sticker.
func Filename(vin string) string { return vin + ".pdf" }
