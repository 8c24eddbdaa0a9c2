package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"

	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/store"
)

// DefaultSearchTimeout applies when a search does not set its own.
const DefaultSearchTimeout = 30 * time.Second

const maxResponseBytes = 4 << 20

// ProviderLookup resolves registered custom providers by id.
type ProviderLookup interface {
	GetProvider(ctx context.Context, id string) (*library.CustomMetadataProvider, error)
}

// SearchQuery describes a custom provider book search.
type SearchQuery struct {
	Title        string
	Author       string
	ISBN         string
	ProviderSlug string
	MediaType    library.MediaType
	Timeout      time.Duration
}

// SeriesMatch is a series reference inside a search result.
type SeriesMatch struct {
	Series   string `json:"series"`
	Sequence string `json:"sequence,omitempty"`
}

// BookMatch is one search result re-mapped to the keys clients consume.
// Unknown keys from the provider are dropped.
type BookMatch struct {
	Title         string        `json:"title"`
	Subtitle      string        `json:"subtitle,omitempty"`
	Author        string        `json:"author,omitempty"`
	Narrator      string        `json:"narrator,omitempty"`
	Publisher     string        `json:"publisher,omitempty"`
	PublishedYear string        `json:"publishedYear,omitempty"`
	Description   string        `json:"description,omitempty"`
	Cover         string        `json:"cover,omitempty"`
	ISBN          string        `json:"isbn,omitempty"`
	ASIN          string        `json:"asin,omitempty"`
	Genres        []string      `json:"genres,omitempty"`
	Tags          *string       `json:"tags"`
	Series        []SeriesMatch `json:"series"`
	Language      string        `json:"language,omitempty"`
	Duration      *float64      `json:"duration,omitempty"`
}

// RequestObserver is told about each outbound provider request.
type RequestObserver func(provider, outcome string)

// CustomAdapter searches custom metadata providers.
type CustomAdapter struct {
	lookup    ProviderLookup
	client    *http.Client
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
	observe   RequestObserver
}

// CustomOption configures a CustomAdapter.
type CustomOption func(*CustomAdapter)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) CustomOption {
	return func(a *CustomAdapter) {
		if client != nil {
			a.client = client
		}
	}
}

// WithRequestObserver registers a callback for request outcomes.
func WithRequestObserver(fn RequestObserver) CustomOption {
	return func(a *CustomAdapter) {
		if fn != nil {
			a.observe = fn
		}
	}
}

// NewCustomAdapter creates an adapter resolving providers through lookup.
func NewCustomAdapter(lookup ProviderLookup, logger *slog.Logger, opts ...CustomOption) *CustomAdapter {
	a := &CustomAdapter{
		lookup:    lookup,
		client:    &http.Client{},
		sanitizer: descriptionPolicy(),
		logger:    logging.NewComponentLogger(logger, "custom-provider"),
		observe:   func(string, string) {},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// descriptionPolicy keeps basic formatting tags and strips everything else.
func descriptionPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "b", "strong", "i", "em", "u", "s", "ul", "ol", "li", "blockquote")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Search queries the provider named by q.ProviderSlug. Transport failures
// and non-2xx answers are logged and yield an empty result; a 2xx answer
// without a matches array is ErrMalformedResponse.
func (a *CustomAdapter) Search(ctx context.Context, q SearchQuery) ([]BookMatch, error) {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}

	providerID, ok := library.ProviderIDFromSlug(q.ProviderSlug)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, q.ProviderSlug)
	}
	provider, err := a.lookup.GetProvider(ctx, providerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("load custom provider %s: %w", providerID, err)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}

	params := url.Values{}
	params.Set("mediaType", string(q.MediaType))
	params.Set("query", q.Title)
	if q.Author != "" {
		params.Set("author", q.Author)
	}
	if q.ISBN != "" {
		params.Set("isbn", q.ISBN)
	}
	endpoint := strings.TrimRight(provider.URL, "/") + "/search?" + params.Encode()
	a.logger.Debug("custom provider search", logging.String("url", endpoint))

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if provider.AuthHeaderValue != "" {
		req.Header.Set("Authorization", provider.AuthHeaderValue)
	}

	body, err := a.fetch(req)
	if err != nil {
		a.observe(provider.Slug(), "error")
		logging.ErrorWithContext(a.logger, "custom provider search failed", "custom_provider_search_failed",
			logging.String("provider", provider.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the provider url and that the service is reachable"),
		)
		return []BookMatch{}, nil
	}

	matches := gjson.GetBytes(body, "matches")
	if !gjson.ValidBytes(body) || !matches.IsArray() {
		a.observe(provider.Slug(), "malformed")
		return nil, ErrMalformedResponse
	}
	a.observe(provider.Slug(), "ok")

	out := make([]BookMatch, 0, len(matches.Array()))
	for _, m := range matches.Array() {
		out = append(out, a.remap(m))
	}
	return out, nil
}

func (a *CustomAdapter) fetch(req *http.Request) ([]byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (a *CustomAdapter) remap(m gjson.Result) BookMatch {
	match := BookMatch{
		Title:         m.Get("title").String(),
		Subtitle:      m.Get("subtitle").String(),
		Author:        m.Get("author").String(),
		Narrator:      m.Get("narrator").String(),
		Publisher:     m.Get("publisher").String(),
		PublishedYear: m.Get("publishedYear").String(),
		Description:   a.sanitizer.Sanitize(m.Get("description").String()),
		Cover:         m.Get("cover").String(),
		ISBN:          m.Get("isbn").String(),
		ASIN:          m.Get("asin").String(),
		Language:      m.Get("language").String(),
	}
	for _, g := range m.Get("genres").Array() {
		match.Genres = append(match.Genres, g.String())
	}
	var tags []string
	for _, t := range m.Get("tags").Array() {
		tags = append(tags, t.String())
	}
	if len(tags) > 0 {
		joined := strings.Join(tags, ",")
		match.Tags = &joined
	}
	for _, s := range m.Get("series").Array() {
		match.Series = append(match.Series, SeriesMatch{
			Series:   s.Get("series").String(),
			Sequence: s.Get("sequence").String(),
		})
	}
	if d := m.Get("duration"); d.Exists() && d.Type == gjson.Number {
		v := d.Float()
		match.Duration = &v
	}
	return match
}

// IsProviderNotFound reports whether err means the provider is unknown.
func IsProviderNotFound(err error) bool {
	return errors.Is(err, ErrProviderNotFound)
}
