package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"audioshelf/internal/logging"
	"audioshelf/internal/textutil"
)

// nameMatchThreshold is the minimum name similarity FindByName accepts.
const nameMatchThreshold = 0.7

const maxImageBytes = 10 << 20

// AuthorData is what Audnexus knows about an author.
type AuthorData struct {
	ASIN        string `json:"asin"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// AuthorFinder looks authors up on Audnexus and stores their images.
type AuthorFinder struct {
	baseURL  string
	region   string
	imageDir string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	observe  RequestObserver
}

// AuthorFinderOptions configures NewAuthorFinder.
type AuthorFinderOptions struct {
	BaseURL           string
	Region            string
	ImageDir          string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Observer          RequestObserver
	Logger            *slog.Logger
}

// NewAuthorFinder creates a finder. Requests are limited to
// RequestsPerSecond with a burst of one.
func NewAuthorFinder(opts AuthorFinderOptions) *AuthorFinder {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultSearchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	region := strings.ToLower(strings.TrimSpace(opts.Region))
	if region == "" {
		region = "us"
	}
	observe := opts.Observer
	if observe == nil {
		observe = func(string, string) {}
	}
	return &AuthorFinder{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		region:   region,
		imageDir: opts.ImageDir,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		logger:   logging.NewComponentLogger(opts.Logger, "author-finder"),
		observe:  observe,
	}
}

// FindByASIN returns the author with the given ASIN, or nil when Audnexus
// does not know it.
func (f *AuthorFinder) FindByASIN(ctx context.Context, asin, region string) (*AuthorData, error) {
	asin = strings.TrimSpace(asin)
	if asin == "" {
		return nil, errors.New("asin must not be empty")
	}
	params := url.Values{}
	params.Set("region", f.regionOr(region))
	var data AuthorData
	found, err := f.getJSON(ctx, "/authors/"+url.PathEscape(asin)+"?"+params.Encode(), &data)
	if err != nil || !found {
		return nil, err
	}
	if data.ASIN == "" {
		data.ASIN = asin
	}
	return &data, nil
}

// FindByName searches by name and returns the closest match when it is
// similar enough, fetched in full by ASIN.
func (f *AuthorFinder) FindByName(ctx context.Context, name, region string) (*AuthorData, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	params := url.Values{}
	params.Set("region", f.regionOr(region))
	params.Set("name", name)
	var candidates []AuthorData
	found, err := f.getJSON(ctx, "/authors?"+params.Encode(), &candidates)
	if err != nil || !found || len(candidates) == 0 {
		return nil, err
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	idx, score := textutil.BestMatch(name, names)
	if idx < 0 || score < nameMatchThreshold {
		f.logger.Debug("no close author match",
			logging.String("query", name),
			logging.Float64("best_score", score),
		)
		return nil, nil
	}
	best := candidates[idx]
	if best.ASIN == "" {
		return &best, nil
	}
	return f.FindByASIN(ctx, best.ASIN, region)
}

// SaveAuthorImage downloads imageURL into the image directory as
// <authorID>.<ext> and returns the file path.
func (f *AuthorFinder) SaveAuthorImage(ctx context.Context, authorID, imageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.observe("audnexus", "error")
		return "", fmt.Errorf("%w: download: %w", ErrInvalidImage, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		f.observe("audnexus", "error")
		return "", fmt.Errorf("%w: download returned %d", ErrInvalidImage, resp.StatusCode)
	}
	ext := imageExtension(resp.Header.Get("Content-Type"), imageURL)
	if ext == "" {
		return "", fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, resp.Header.Get("Content-Type"))
	}

	if err := os.MkdirAll(f.imageDir, 0o755); err != nil {
		return "", fmt.Errorf("create author image dir: %w", err)
	}
	target := filepath.Join(f.imageDir, textutil.FileToken(authorID)+ext)
	tmp, err := os.CreateTemp(f.imageDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	n, copyErr := io.Copy(tmp, io.LimitReader(resp.Body, maxImageBytes+1))
	closeErr := tmp.Close()
	if copyErr == nil && n > maxImageBytes {
		copyErr = fmt.Errorf("%w: image larger than %d bytes", ErrInvalidImage, maxImageBytes)
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil {
		copyErr = os.Rename(tmp.Name(), target)
	}
	if copyErr != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("save author image: %w", copyErr)
	}
	f.observe("audnexus", "ok")
	f.logger.Info("author image saved",
		logging.AuthorID(authorID),
		logging.String("path", target),
	)
	return target, nil
}

func (f *AuthorFinder) regionOr(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return f.region
	}
	return region
}

// getJSON performs a throttled GET. A 404 reports found=false without error.
func (f *AuthorFinder) getJSON(ctx context.Context, pathAndQuery string, out any) (bool, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+pathAndQuery, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		f.observe("audnexus", "error")
		return false, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		f.observe("audnexus", "not_found")
		return false, nil
	case resp.StatusCode != http.StatusOK:
		f.observe("audnexus", "error")
		return false, fmt.Errorf("audnexus returned %d (latency=%v)", resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		f.observe("audnexus", "malformed")
		return false, fmt.Errorf("decode audnexus response: %w", err)
	}
	f.observe("audnexus", "ok")
	return true, nil
}

func imageExtension(contentType, rawURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/jpeg", "image/jpg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		case "image/gif":
			return ".gif"
		}
		if strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "text/") {
			return ""
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		switch ext := strings.ToLower(path.Ext(u.Path)); ext {
		case ".jpg", ".jpeg":
			return ".jpg"
		case ".png", ".webp", ".gif":
			return ext
		}
	}
	return ""
}
