package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jdejaegh/ics-fusion/internal/cache"
	"github.com/jdejaegh/ics-fusion/internal/config"
	"github.com/jdejaegh/ics-fusion/internal/merge"
)

type staticFetcher struct {
	bodies map[string][]byte
}

func (f *staticFetcher) Fetch(_ context.Context, url, _ string) ([]byte, error) {
	body, ok := f.bodies[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return body, nil
}

func testServer(t *testing.T) *http.Server {
	t.Helper()

	ics := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//t//t//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:evt-1\r\n" +
		"DTSTAMP:20250101T000000Z\r\n" +
		"DTSTART:20250110T090000Z\r\n" +
		"SUMMARY:Team sync\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	fetcher := &staticFetcher{bodies: map[string][]byte{
		"https://example.com/a.ics": []byte(ics),
	}}

	dir := t.TempDir()
	doc := `[{"url": "https://example.com/a.ics", "name": "a"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "team.json"), []byte(doc), 0o600))

	m := merge.New(config.NewDirStore(dir), cache.New(fetcher), false)
	return NewServer(m, "127.0.0.1:0")
}

func do(t *testing.T, srv *http.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Calendar(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, "/team")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "attachment; filename=team.ics", rec.Header().Get("Content-Disposition"))
	require.Contains(t, rec.Body.String(), "UID:evt-1")
	require.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR"))
}

func TestServer_UnknownCalendar(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Index(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "team\n", rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok\n", rec.Body.String())
}

func TestServer_SecurityHeaders(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, "/health")
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/team", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
