package internalhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/lomoval/sxodim/internal/app"
	"github.com/lomoval/sxodim/internal/schema"
	"github.com/lomoval/sxodim/internal/storage"
	memorystorage "github.com/lomoval/sxodim/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

const eventJSON = `{"name":"Jazz","date":"2030-01-01","time":"19:00","place":"Club",` +
	`"description":"Live jazz","image_url":"https://img.example/jazz.png"}`

func newTestServer(t *testing.T, s storage.Storage) *httptest.Server {
	t.Helper()
	srv, err := NewServer(Config{Host: "127.0.0.1", Port: 0}, app.New(s))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, memorystorage.New())

	code, body := do(t, ts, http.MethodPost, "/api/register", `{"login":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, code)
	u := decode[schema.User](t, body)
	require.NotZero(t, u.ID)
	require.JSONEq(t, `{"id":`+strconv.FormatInt(u.ID, 10)+`,"login":"alice"}`, string(body))

	code, body = do(t, ts, http.MethodPost, "/api/register", `{"login":"alice","password":"other"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.JSONEq(t, `{"detail":"User already exists"}`, string(body))

	code, body = do(t, ts, http.MethodPost, "/api/login", `{"login":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, u, decode[schema.User](t, body))

	for _, creds := range []string{
		`{"login":"alice","password":"wrong"}`,
		`{"login":"bob","password":"secret"}`,
	} {
		code, body = do(t, ts, http.MethodPost, "/api/login", creds)
		require.Equal(t, http.StatusUnauthorized, code)
		require.JSONEq(t, `{"detail":"Invalid login or password"}`, string(body))
	}

	code, _ = do(t, ts, http.MethodPost, "/api/register", `{"login":"carol"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestEvents(t *testing.T) {
	ts := newTestServer(t, memorystorage.New())

	code, body := do(t, ts, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `[]`, string(body))

	code, body = do(t, ts, http.MethodPost, "/api/events", eventJSON)
	require.Equal(t, http.StatusOK, code)
	created := decode[schema.Event](t, body)
	require.NotZero(t, created.ID)

	code, body = do(t, ts, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []schema.Event{created}, decode[[]schema.Event](t, body))

	t.Run("update", func(t *testing.T) {
		upd := `{"id":555,"name":"Rock","date":"2031-05-05","time":"21:00","place":"Stadium",` +
			`"description":"","image_url":""}`
		code, body := do(t, ts, http.MethodPut, "/api/events/9999", upd)
		require.Equal(t, http.StatusNotFound, code)
		require.JSONEq(t, `{"detail":"Event not found"}`, string(body))

		path := "/api/events/" + strconv.FormatInt(created.ID, 10)
		code, body = do(t, ts, http.MethodPut, path, upd)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, schema.Event{
			ID: created.ID, Name: "Rock", Date: "2031-05-05", Time: "21:00", Place: "Stadium",
		}, decode[schema.Event](t, body))

		code, _ = do(t, ts, http.MethodPut, "/api/events/abc", upd)
		require.Equal(t, http.StatusUnprocessableEntity, code)

		code, _ = do(t, ts, http.MethodPut, path, `{"name":"only name"}`)
		require.Equal(t, http.StatusUnprocessableEntity, code)
	})

	t.Run("delete twice", func(t *testing.T) {
		path := "/api/events/" + strconv.FormatInt(created.ID, 10)
		code, body := do(t, ts, http.MethodDelete, path, "")
		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"message":"Event deleted"}`, string(body))

		code, body = do(t, ts, http.MethodDelete, path, "")
		require.Equal(t, http.StatusNotFound, code)
		require.JSONEq(t, `{"detail":"Event not found"}`, string(body))
	})
}

func TestCalendar(t *testing.T) {
	ts := newTestServer(t, memorystorage.New())

	_, body := do(t, ts, http.MethodPost, "/api/register", `{"login":"alice","password":"secret"}`)
	u := decode[schema.User](t, body)
	_, body = do(t, ts, http.MethodPost, "/api/events", eventJSON)
	e := decode[schema.Event](t, body)

	item := func(userID, eventID int64) string {
		return `{"user_id":` + strconv.FormatInt(userID, 10) + `,"event_id":` + strconv.FormatInt(eventID, 10) + `}`
	}

	code, body := do(t, ts, http.MethodPost, "/api/calendar", item(u.ID, e.ID+1))
	require.Equal(t, http.StatusNotFound, code)
	require.JSONEq(t, `{"detail":"User or Event not found"}`, string(body))

	calendarPath := "/api/calendar/" + strconv.FormatInt(u.ID, 10)
	code, body = do(t, ts, http.MethodGet, calendarPath, "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `[]`, string(body))

	code, body = do(t, ts, http.MethodPost, "/api/calendar", item(u.ID, e.ID))
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"message":"Added to calendar"}`, string(body))

	code, body = do(t, ts, http.MethodGet, calendarPath, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []schema.Event{e}, decode[[]schema.Event](t, body))

	code, body = do(t, ts, http.MethodGet, "/api/calendar/4242", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `[]`, string(body))
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t, memorystorage.New())

	code, body := do(t, ts, http.MethodGet, "/api/users/7/settings", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"theme":"light","notifications":true}`, string(body))

	code, body = do(t, ts, http.MethodPut, "/api/users/7/settings", `{"theme":"dark"}`)
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"theme":"dark","notifications":true}`, string(body))

	code, body = do(t, ts, http.MethodGet, "/api/users/7/settings", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"theme":"light","notifications":true}`, string(body))

	code, body = do(t, ts, http.MethodPut, "/api/users/7/settings", `{"theme":null}`)
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"theme":null,"notifications":true}`, string(body))

	code, _ = do(t, ts, http.MethodGet, "/api/users/me/settings", "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestRequestBody(t *testing.T) {
	ts := newTestServer(t, memorystorage.New())

	code, body := do(t, ts, http.MethodPost, "/api/register", `{"login":"alice","password":"secret"}xyz`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Contains(t, string(body), "json_invalid")

	large := `{"login":"` + strings.Repeat("a", maxBodySize) + `","password":"secret"}`
	code, body = do(t, ts, http.MethodPost, "/api/register", large)
	require.Equal(t, http.StatusRequestEntityTooLarge, code)
	require.JSONEq(t, `{"detail":"Request body too large"}`, string(body))

	code, body = do(t, ts, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `[]`, string(body))
}

type failingStorage struct {
	memorystorage.Storage
}

func (f *failingStorage) Session(_ context.Context) (storage.Session, error) {
	return nil, errors.New("database is gone")
}

func TestInternalError(t *testing.T) {
	ts := newTestServer(t, &failingStorage{})

	code, body := do(t, ts, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusInternalServerError, code)
	require.JSONEq(t, `{"detail":"Internal Server Error"}`, string(body))
}

func TestRouting(t *testing.T) {
	ts := newTestServer(t, memorystorage.New())

	code, _ := do(t, ts, http.MethodGet, "/api/unknown", "")
	require.Equal(t, http.StatusNotFound, code)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "req-1")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "req-1", resp.Header.Get(requestIDHeader))

	code, body := do(t, ts, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body), "sxodim_http_requests_total")
}
