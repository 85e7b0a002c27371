// Package fetch retrieves recipe HTML with the protections the import
// pipeline requires: SSRF re-validation on every redirect hop, a streaming
// byte-size ceiling, content-type enforcement, and a per-hop timeout.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Failure classes surfaced to the coordinator. All are fatal to the current
// import and never retried internally.
var (
	ErrUnsafeURL        = errors.New("unsafe URL")
	ErrTimeout          = errors.New("request timeout")
	ErrConnection       = errors.New("connection failed")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrBadStatus        = errors.New("unexpected HTTP status")
	ErrNotHTML          = errors.New("response is not HTML")
	ErrTooLarge         = errors.New("response too large")
)

const defaultUserAgent = "Mozilla/5.0 (compatible; MealTogether/1.0; +https://mealtogether.chuckycastle.io)"

// URLValidator decides whether a URL may be fetched. Satisfied by
// *safeurl.Validator.
type URLValidator interface {
	Validate(ctx context.Context, rawURL string) (bool, string)
}

// Options tunes a Fetcher. Zero values fall back to the defaults from the
// import pipeline configuration.
type Options struct {
	Timeout      time.Duration
	MaxBytes     int64
	MaxRedirects int
	UserAgent    string
}

// Fetcher downloads HTML pages. Redirects are followed manually so each hop
// can be re-validated.
type Fetcher struct {
	client       *http.Client
	validator    URLValidator
	maxBytes     int64
	maxRedirects int
	userAgent    string
	log          *logrus.Logger
}

// NewFetcher creates a Fetcher using the given validator and options.
func NewFetcher(validator URLValidator, opts Options, log *logrus.Logger) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = 5 * 1024 * 1024
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if log == nil {
		log = logrus.New()
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			// Redirects are handled in Fetch so every hop is re-validated.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		validator:    validator,
		maxBytes:     opts.MaxBytes,
		maxRedirects: opts.MaxRedirects,
		userAgent:    opts.UserAgent,
		log:          log,
	}
}

// Fetch downloads the HTML at rawURL. The URL is validated before the first
// request and again after every redirect. The body is read incrementally and
// abandoned the moment it exceeds the size ceiling. Invalid byte sequences in
// the body are dropped rather than treated as fatal.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if safe, reason := f.validator.Validate(ctx, rawURL); !safe {
		return "", fmt.Errorf("%w: %s", ErrUnsafeURL, reason)
	}

	currentURL := rawURL
	for hop := 0; hop <= f.maxRedirects; hop++ {
		resp, err := f.get(ctx, currentURL)
		if err != nil {
			return "", err
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			resp.Body.Close()

			if location == "" {
				return "", fmt.Errorf("%w: HTTP %d redirect without Location header", ErrBadStatus, resp.StatusCode)
			}

			nextURL, err := resolveRedirect(currentURL, location)
			if err != nil {
				return "", fmt.Errorf("%w: unresolvable redirect target", ErrUnsafeURL)
			}

			if safe, reason := f.validator.Validate(ctx, nextURL); !safe {
				return "", fmt.Errorf("%w: redirect to %s", ErrUnsafeURL, reason)
			}

			f.log.WithFields(logrus.Fields{"from": currentURL, "to": nextURL, "hop": hop + 1}).Debug("following redirect")
			currentURL = nextURL
			continue
		}

		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", fmt.Errorf("%w: HTTP %d", ErrBadStatus, resp.StatusCode)
		}

		contentType := strings.ToLower(resp.Header.Get("Content-Type"))
		if !strings.Contains(contentType, "html") && !strings.Contains(contentType, "text") {
			return "", fmt.Errorf("%w: %s", ErrNotHTML, contentType)
		}

		body, err := f.readBounded(resp.Body)
		if err != nil {
			return "", err
		}

		return strings.ToValidUTF8(string(body), ""), nil
	}

	return "", fmt.Errorf("%w: max %d", ErrTooManyRedirects, f.maxRedirects)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, f.client.Timeout)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, f.client.Timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return resp, nil
}

// readBounded streams the body and aborts once the ceiling is crossed, rather
// than buffering an arbitrarily large response first.
func (f *Fetcher) readBounded(body io.Reader) ([]byte, error) {
	limited := io.LimitReader(body, f.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: interrupted while reading response", ErrConnection)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// resolveRedirect resolves a possibly relative Location header against the
// URL that produced it.
func resolveRedirect(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}

// IsFetchError reports whether err belongs to the fetch failure taxonomy,
// which the API surface maps to a client-input error.
func IsFetchError(err error) bool {
	for _, sentinel := range []error{
		ErrUnsafeURL, ErrTimeout, ErrConnection, ErrTooManyRedirects,
		ErrBadStatus, ErrNotHTML, ErrTooLarge,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
