package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audioshelf/internal/api"
	"audioshelf/internal/auth"
	"audioshelf/internal/config"
	"audioshelf/internal/events"
	"audioshelf/internal/httpapi"
	"audioshelf/internal/imagecache"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/metrics"
	"audioshelf/internal/providers"
	"audioshelf/internal/store"
	"audioshelf/internal/testsupport"
)

var (
	admin  = config.User{ID: "admin", Username: "admin", CanUpdate: true, CanDelete: true, CanUpload: true}
	reader = config.User{ID: "reader", Username: "reader"}
)

type fakeSearcher struct {
	last providers.SearchQuery
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, q providers.SearchQuery) ([]providers.BookMatch, error) {
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	return []providers.BookMatch{{Title: "Found " + q.Title}}, nil
}

type serverFixture struct {
	st       *store.Store
	lib      *library.Library
	auth     *auth.Authenticator
	recorder *events.Recorder
	search   *fakeSearcher
	server   *httptest.Server
}

func newServerFixture(t *testing.T, users ...config.User) *serverFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithUsers(users...), testsupport.WithShelfCapacity(2))
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	f := &serverFixture{
		st:       st,
		lib:      testsupport.NewLibrary(t, st, "Fiction", t.TempDir()),
		auth:     auth.New(cfg),
		recorder: &events.Recorder{},
		search:   &fakeSearcher{},
	}
	srv := httpapi.New(httpapi.Options{
		Authors: api.NewAuthorService(api.AuthorServiceOptions{
			Store:  st,
			Images: imagecache.New(filepath.Join(t.TempDir(), "images"), 1, 400, logger),
			Finder: providers.NewAuthorFinder(providers.AuthorFinderOptions{
				BaseURL:  "http://127.0.0.1:1",
				ImageDir: cfg.AuthorImageDir(),
				Logger:   logger,
			}),
			Events: f.recorder,
			Logger: logger,
		}),
		Series:  api.NewSeriesService(st, f.recorder, logger),
		Folders: api.NewFolderService(st, f.recorder, logger),
		Items:   api.NewItemService(st, f.recorder, logger),
		Shelf: api.NewShelfService(api.ShelfServiceOptions{
			Store:  st,
			Layout: cfg.Bookshelf,
			Events: f.recorder,
			Logger: logger,
		}),
		Search:  f.search,
		Auth:    f.auth,
		Metrics: metrics.New(),
		Status: func(context.Context) api.DaemonStatus {
			return api.DaemonStatus{Running: true, PID: 42}
		},
		Logger: logger,
	})
	f.server = httptest.NewServer(srv.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *serverFixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := f.auth.Issue(userID)
	require.NoError(t, err)
	return token
}

func (f *serverFixture) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestServerRejectsMissingToken(t *testing.T) {
	f := newServerFixture(t, admin)
	resp := f.do(t, http.MethodGet, "/api/status", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "unauthorized", body["error"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServerStatus(t *testing.T) {
	f := newServerFixture(t, admin)
	resp := f.do(t, http.MethodGet, "/api/status", f.token(t, admin.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status api.DaemonStatus
	decode(t, resp, &status)
	assert.True(t, status.Running)
	assert.Equal(t, 42, status.PID)
	assert.True(t, status.AuthEnabled)
}

func TestServerRunsAsLocalOperatorWithoutUsers(t *testing.T) {
	f := newServerFixture(t)
	author := testsupport.NewAuthor(t, f.st, f.lib.ID, "Jane Doe")

	resp := f.do(t, http.MethodDelete, "/api/authors/"+author.ID, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []events.Event{events.AuthorRemoved}, f.recorder.Names())
}

func TestServerAuthorNotFoundBeforePermission(t *testing.T) {
	f := newServerFixture(t, admin, reader)
	token := f.token(t, reader.ID)

	resp := f.do(t, http.MethodDelete, "/api/authors/missing", token, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	author := testsupport.NewAuthor(t, f.st, f.lib.ID, "Jane Doe")
	resp = f.do(t, http.MethodDelete, "/api/authors/"+author.ID, token, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = f.do(t, http.MethodPatch, "/api/authors/"+author.ID, token, `{"name":"Other"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/authors/"+author.ID, token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, f.recorder.Names())
}

func TestServerUpdateAuthor(t *testing.T) {
	f := newServerFixture(t, admin)
	author := testsupport.NewAuthor(t, f.st, f.lib.ID, "Jane Doe")
	testsupport.NewBook(t, f.st, f.lib, "First", testsupport.ByAuthors(author))

	resp := f.do(t, http.MethodPatch, "/api/authors/"+author.ID, f.token(t, admin.ID), `{"name":"Jane A. Doe"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.AuthorUpdateResult
	decode(t, resp, &result)
	require.NotNil(t, result.Updated)
	assert.True(t, *result.Updated)
	assert.Equal(t, "Jane A. Doe", result.Author.Name)

	resp = f.do(t, http.MethodGet, "/api/authors/"+author.ID+"?include=items", f.token(t, admin.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail map[string]any
	decode(t, resp, &detail)
	items, ok := detail["libraryItems"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestServerAuthorBadBody(t *testing.T) {
	f := newServerFixture(t, admin)
	author := testsupport.NewAuthor(t, f.st, f.lib.ID, "Jane Doe")

	resp := f.do(t, http.MethodPatch, "/api/authors/"+author.ID, f.token(t, admin.ID), `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/authors/"+author.ID+"/match", f.token(t, admin.ID), `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/authors/"+author.ID+"/image?width=abc", f.token(t, admin.ID), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/authors/"+author.ID+"/image?width=1099511627776", f.token(t, admin.ID), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/authors/"+author.ID+"/image?height=4097", f.token(t, admin.ID), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/authors/"+author.ID+"/image", f.token(t, admin.ID), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerFolders(t *testing.T) {
	f := newServerFixture(t, admin)
	token := f.token(t, admin.ID)
	dir := filepath.Join(t.TempDir(), "audiobooks")

	resp := f.do(t, http.MethodPost, "/api/libraries/"+f.lib.ID+"/folders", token, `{"fullPath":"relative"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/libraries/"+f.lib.ID+"/folders", token, `{"fullPath":"`+dir+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var folder library.Folder
	decode(t, resp, &folder)
	assert.Equal(t, dir, folder.FullPath)

	resp = f.do(t, http.MethodPost, "/api/libraries/"+f.lib.ID+"/folders", token, `{"fullPath":"`+dir+`"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/libraries/"+f.lib.ID+"/folders", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Folders []library.Folder `json:"folders"`
	}
	decode(t, resp, &listing)
	assert.Len(t, listing.Folders, 2)

	resp = f.do(t, http.MethodDelete, "/api/folders/"+folder.ID, token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, http.MethodDelete, "/api/folders/"+folder.ID, token, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerFolderPermissions(t *testing.T) {
	f := newServerFixture(t, admin, reader)
	resp := f.do(t, http.MethodPost, "/api/libraries/"+f.lib.ID+"/folders", f.token(t, reader.ID), `{"fullPath":"/books"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/libraries/"+f.lib.ID+"/folders", f.token(t, reader.ID), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerSearchBooks(t *testing.T) {
	f := newServerFixture(t, admin)
	token := f.token(t, admin.ID)

	resp := f.do(t, http.MethodGet, "/api/search/books?title=Dune", token, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/search/books?title=Dune&provider=custom-1&timeout=250", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var matches []providers.BookMatch
	decode(t, resp, &matches)
	require.Len(t, matches, 1)
	assert.Equal(t, "Found Dune", matches[0].Title)
	assert.Equal(t, "custom-1", f.search.last.ProviderSlug)
	assert.Equal(t, int64(250), f.search.last.Timeout.Milliseconds())

	f.search.err = providers.ErrMalformedResponse
	resp = f.do(t, http.MethodGet, "/api/search/books?title=Dune&provider=custom-1", token, "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestServerBookshelf(t *testing.T) {
	f := newServerFixture(t, admin)
	token := f.token(t, admin.ID)
	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		testsupport.NewBook(t, f.st, f.lib, title)
	}
	base := "/api/libraries/" + f.lib.ID + "/bookshelf/home"

	resp := f.do(t, http.MethodPost, base, token, `{"entityName":"items","orderBy":"media.metadata.title","firstShelf":0,"lastShelf":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result api.ShelfResult
	decode(t, resp, &result)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.TotalShelves)
	require.Len(t, result.Shelves, 2)

	resp = f.do(t, http.MethodPost, base+"/cards/0/select?shift=true", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []events.Event{events.CardSelect}, f.recorder.Names())

	resp = f.do(t, http.MethodPost, base+"/cards/0/explode", token, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, base, token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, http.MethodDelete, "/api/libraries/"+f.lib.ID+"/bookshelf/other", token, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, base, token, `{"entityName":"albums"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerBookshelfViewsBelongToUser(t *testing.T) {
	f := newServerFixture(t, admin, reader)
	testsupport.NewBook(t, f.st, f.lib, "Alpha")
	base := "/api/libraries/" + f.lib.ID + "/bookshelf/home"

	resp := f.do(t, http.MethodPost, base, f.token(t, admin.ID), `{"entityName":"items"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	other := f.token(t, reader.ID)
	resp = f.do(t, http.MethodPost, base+"/cards/0/edit", other, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.do(t, http.MethodDelete, base, other, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, f.recorder.Names())

	resp = f.do(t, http.MethodPost, base+"/cards/0/edit", f.token(t, admin.ID), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerExposesMetrics(t *testing.T) {
	f := newServerFixture(t, admin)
	f.do(t, http.MethodGet, "/api/items/missing", f.token(t, admin.ID), "")

	resp := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `route="/api/items/{id}",status="404"`)
}
