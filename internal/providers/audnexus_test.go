package providers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"audioshelf/internal/logging"
	"audioshelf/internal/providers"
)

func newAudnexus(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/authors/B000AP9A6K", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("region") != "uk" {
			t.Errorf("unexpected region %q", r.URL.Query().Get("region"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"asin":        "B000AP9A6K",
			"name":        "Terry Pratchett",
			"description": "Author of Discworld.",
			"image":       "http://" + r.Host + "/img/pratchett.jpg",
		})
	})
	mux.HandleFunc("/authors", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"asin": "B000APZOQA", "name": "Terry Brooks"},
			{"asin": "B000AP9A6K", "name": "Terry Pratchett"},
		})
	})
	mux.HandleFunc("/img/pratchett.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	})
	mux.HandleFunc("/img/page.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFinder(t *testing.T, baseURL string) *providers.AuthorFinder {
	return providers.NewAuthorFinder(providers.AuthorFinderOptions{
		BaseURL:           baseURL,
		Region:            "uk",
		ImageDir:          filepath.Join(t.TempDir(), "authors"),
		RequestsPerSecond: 1000,
		Logger:            logging.NewNop(),
	})
}

func TestFindByASIN(t *testing.T) {
	srv := newAudnexus(t)
	finder := newFinder(t, srv.URL)

	author, err := finder.FindByASIN(context.Background(), "B000AP9A6K", "")
	if err != nil {
		t.Fatalf("FindByASIN: %v", err)
	}
	if author == nil || author.Name != "Terry Pratchett" || author.Description == "" {
		t.Fatalf("unexpected author: %+v", author)
	}

	missing, err := finder.FindByASIN(context.Background(), "UNKNOWN", "uk")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown asin, got %+v %v", missing, err)
	}
}

func TestFindByNamePicksClosestCandidate(t *testing.T) {
	srv := newAudnexus(t)
	finder := newFinder(t, srv.URL)

	author, err := finder.FindByName(context.Background(), "terry pratchett", "uk")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if author == nil || author.ASIN != "B000AP9A6K" {
		t.Fatalf("unexpected match: %+v", author)
	}

	none, err := finder.FindByName(context.Background(), "Octavia Butler", "uk")
	if err != nil || none != nil {
		t.Fatalf("expected no match, got %+v %v", none, err)
	}
}

func TestSaveAuthorImage(t *testing.T) {
	srv := newAudnexus(t)
	finder := newFinder(t, srv.URL)

	path, err := finder.SaveAuthorImage(context.Background(), "author-1", srv.URL+"/img/pratchett.jpg")
	if err != nil {
		t.Fatalf("SaveAuthorImage: %v", err)
	}
	if filepath.Base(path) != "author-1.jpg" {
		t.Fatalf("unexpected image path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) != 4 {
		t.Fatalf("unexpected image contents: %v %v", data, err)
	}

	_, err = finder.SaveAuthorImage(context.Background(), "author-1", srv.URL+"/img/page.html")
	if !errors.Is(err, providers.ErrInvalidImage) {
		t.Fatalf("expected invalid image for html, got %v", err)
	}
	_, err = finder.SaveAuthorImage(context.Background(), "author-1", srv.URL+"/img/missing.jpg")
	if !errors.Is(err, providers.ErrInvalidImage) {
		t.Fatalf("expected invalid image for 404, got %v", err)
	}
}
