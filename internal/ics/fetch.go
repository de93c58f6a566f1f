package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/jdejaegh/ics-fusion/internal/apperr"
	appLog "github.com/jdejaegh/ics-fusion/internal/log"
)

// Fetcher retrieves raw feed bodies over HTTP with a bounded timeout.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A zero timeout falls back to 15s.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads one feed. A non-2xx status or network failure is a
// FeedFetchError. When encoding names an IANA charset, the body is decoded
// from it into UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, url, encoding string) ([]byte, error) {
	if url == "" {
		return nil, apperr.NewFeedFetch(url, errors.New("feed URL is empty"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.NewFeedFetch(url, err)
	}

	appLog.Debug("feed fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.NewFeedFetch(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.NewFeedFetch(url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.NewFeedFetch(url, err)
	}

	if encoding != "" {
		body, err = decode(body, encoding)
		if err != nil {
			return nil, apperr.NewFeedFetch(url, err)
		}
	}

	appLog.Info("feed fetch success", "url", redactURL(url), "bytes", len(body))
	return body, nil
}

// decode converts body from the named IANA charset to UTF-8. The charset
// name is validated at config-resolution time, so failures here mean the
// payload itself is broken for that encoding.
func decode(body []byte, encoding string) ([]byte, error) {
	enc, err := ianaindex.IANA.Encoding(encoding)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decoding body as %s: %w", encoding, err)
	}
	return out, nil
}

// redactURL hides the path and query of a feed URL for logging. Private
// feed URLs routinely embed access tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}

	return u[:j] + redactedSuffix
}
