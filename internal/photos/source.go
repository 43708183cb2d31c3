// Package photos fetches vehicle photos for a VIN from an HTTP image index.
//
// The index endpoint is configured with a URL template whose %s is replaced
// with the VIN. It must answer with JSON of the form
//
//	{"images": ["https://.../1.jpg", "https://.../2.jpg"]}
//
// Each listed image is then downloaded, up to the configured maximum.
package photos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-vin-sticker-bot/internal/services"
)

// ErrNotConfigured is returned when no index URL template is set.
var ErrNotConfigured = errors.New("photos: source not configured")

// maxImageBytes caps a single downloaded image (Telegram's photo limit).
const maxImageBytes = 10 << 20

// Source implements services.PhotoSource.
type Source struct {
	HTTP        *http.Client
	URLTemplate string
	Max         int
}

var _ services.PhotoSource = (*Source)(nil)

// New returns a Source. limit outside 1..10 defaults to 10, the size of one
// Telegram media group.
func New(urlTemplate string, timeout time.Duration, limit int) *Source {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	return &Source{
		HTTP:        &http.Client{Timeout: timeout},
		URLTemplate: strings.TrimSpace(urlTemplate),
		Max:         limit,
	}
}

type indexResponse struct {
	Images []string `json:"images"`
}

// Photos returns up to s.Max photos for vin. Images that fail to download
// are skipped; an error is returned only when the index itself fails or no
// image could be fetched.
func (s *Source) Photos(ctx context.Context, vin string) ([]services.Photo, error) {
	if s == nil || s.URLTemplate == "" {
		return nil, ErrNotConfigured
	}

	urls, err := s.index(ctx, vin)
	if err != nil {
		return nil, err
	}

	out := make([]services.Photo, 0, min(len(urls), s.Max))
	for _, u := range urls {
		if len(out) >= s.Max {
			break
		}
		data, err := s.download(ctx, u)
		if err != nil {
			log.Warn().Err(err).Str("vin", vin).Str("url", u).Msg("photo download failed")
			continue
		}
		out = append(out, services.Photo{Name: photoName(u, len(out)), Data: data})
	}
	if len(out) == 0 && len(urls) > 0 {
		return nil, fmt.Errorf("photos: none of %d images could be downloaded", len(urls))
	}
	return out, nil
}

func (s *Source) index(ctx context.Context, vin string) ([]string, error) {
	endpoint := fmt.Sprintf(s.URLTemplate, url.QueryEscape(vin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("photos: index status %d", resp.StatusCode)
	}

	var body indexResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("photos: decode index: %w", err)
	}
	return body.Images, nil
}

func (s *Source) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

func (s *Source) client() *http.Client {
	if s.HTTP != nil {
		return s.HTTP
	}
	return http.DefaultClient
}

func photoName(u string, i int) string {
	if parsed, err := url.Parse(u); err == nil {
		if base := path.Base(parsed.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return fmt.Sprintf("photo-%d.jpg", i+1)
}
