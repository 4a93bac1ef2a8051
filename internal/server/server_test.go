package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/songrelay/internal/library"
	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/shared"
	tu "github.com/desertthunder/songrelay/internal/testing"
)

func newTestRouter(store *tu.MockStore, metrics *Metrics, publicURL string) *BasicRouter {
	logger := shared.NewLogger(io.Discard)
	return NewRouter(Options{
		Library:   library.New(store, "folder", logger),
		Logger:    logger,
		Metrics:   metrics,
		PublicURL: publicURL,
	})
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSongRoutes(t *testing.T) {
	payload := "OggS\x00\x02\xff\x00binary\r\n\x00tail"

	t.Run("StreamByName", func(t *testing.T) {
		t.Run("Streams Exact Bytes", func(t *testing.T) {
			store := tu.NewMockStore([2]string{"Song One.ogg", payload}, [2]string{"Other.ogg", "nope"})
			rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/song/Song%20One.ogg")

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != AudioContentType {
				t.Errorf("expected content type %s, got %s", AudioContentType, ct)
			}
			if !bytes.Equal(rec.Body.Bytes(), []byte(payload)) {
				t.Errorf("body altered: got %q", rec.Body.String())
			}
			if opened := store.Opened(); len(opened) != 1 || opened[0] != "id-1" {
				t.Errorf("expected id-1 to be opened, got %v", opened)
			}
		})

		t.Run("Mp3 Still Sent As Ogg", func(t *testing.T) {
			store := tu.NewMockStore([2]string{"track.mp3", "ID3"})
			rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/song/track.mp3")

			if ct := rec.Header().Get("Content-Type"); ct != AudioContentType {
				t.Errorf("expected content type %s, got %s", AudioContentType, ct)
			}
		})

		t.Run("Case Sensitive Miss", func(t *testing.T) {
			store := tu.NewMockStore([2]string{"Song One.ogg", payload})
			rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/song/song%20one.ogg")

			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected status 404, got %d", rec.Code)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != msgSongNotFound {
				t.Errorf("expected %q, got %q", msgSongNotFound, body)
			}
			if len(store.Opened()) != 0 {
				t.Error("expected no content to be opened")
			}
		})

		t.Run("Listing Failure", func(t *testing.T) {
			store := tu.NewMockStore()
			store.ListErr = errors.New("quota exceeded")
			rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/song/any.ogg")

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected status 500, got %d", rec.Code)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != msgSongFailed {
				t.Errorf("expected %q, got %q", msgSongFailed, body)
			}
		})

		t.Run("Open Failure Leaves No Partial Body", func(t *testing.T) {
			store := tu.NewMockStore([2]string{"Song One.ogg", payload})
			store.OpenErr = errors.New("forbidden")
			rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/song/Song%20One.ogg")

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected status 500, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct == AudioContentType {
				t.Error("expected no audio content type on failure")
			}
		})
	})

	t.Run("StreamBySlug", func(t *testing.T) {
		t.Run("First Match Wins", func(t *testing.T) {
			store := tu.NewMockStore(
				[2]string{"Intro.ogg", "intro"},
				[2]string{"My Song.mp3", payload},
				[2]string{"my song.ogg", "second"},
			)
			rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/songs/my-song")

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if rec.Body.String() != payload {
				t.Errorf("expected first match body, got %q", rec.Body.String())
			}
		})

		t.Run("Unknown Slug", func(t *testing.T) {
			store := tu.NewMockStore([2]string{"Intro.ogg", "intro"})
			rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/songs/outro")

			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected status 404, got %d", rec.Code)
			}
		})

		t.Run("Empty Folder", func(t *testing.T) {
			rec := serve(newTestRouter(tu.NewMockStore(), nil, ""), http.MethodGet, "/songs/intro")

			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected status 404, got %d", rec.Code)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		t.Run("Lists Every Entry", func(t *testing.T) {
			store := tu.NewMockStore(
				[2]string{"Song One.ogg", "1"},
				[2]string{"B-Side.mp3", "2"},
				[2]string{"Song One.ogg", "3"},
			)
			req := httptest.NewRequest(http.MethodGet, "/songs", nil)
			req.Host = "relay.local:3000"
			rec := httptest.NewRecorder()
			newTestRouter(store, nil, "").ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
				t.Errorf("expected JSON content type, got %s", rec.Header().Get("Content-Type"))
			}

			var listings []models.SongListing
			if err := json.Unmarshal(rec.Body.Bytes(), &listings); err != nil {
				t.Fatalf("failed to decode listing: %v", err)
			}
			if len(listings) != 3 {
				t.Fatalf("expected 3 listings, got %d", len(listings))
			}
			if listings[0].URL != "http://relay.local:3000/songs/song-one" {
				t.Errorf("unexpected url %s", listings[0].URL)
			}
			if listings[1].Slug != "b-side" || listings[1].Name != "B-Side.mp3" {
				t.Errorf("unexpected listing %+v", listings[1])
			}
		})

		t.Run("Public URL Wins", func(t *testing.T) {
			store := tu.NewMockStore([2]string{"Song One.ogg", "1"})
			rec := serve(newTestRouter(store, nil, "https://music.example.com/"), http.MethodGet, "/songs")

			var listings []models.SongListing
			json.Unmarshal(rec.Body.Bytes(), &listings)
			if len(listings) != 1 || listings[0].URL != "https://music.example.com/songs/song-one" {
				t.Errorf("unexpected listings %+v", listings)
			}
		})

		t.Run("Forwarded Proto", func(t *testing.T) {
			store := tu.NewMockStore([2]string{"Song One.ogg", "1"})
			req := httptest.NewRequest(http.MethodGet, "/songs", nil)
			req.Host = "music.example.com"
			req.Header.Set("X-Forwarded-Proto", "https, http")
			rec := httptest.NewRecorder()
			newTestRouter(store, nil, "").ServeHTTP(rec, req)

			var listings []models.SongListing
			json.Unmarshal(rec.Body.Bytes(), &listings)
			if len(listings) != 1 || listings[0].URL != "https://music.example.com/songs/song-one" {
				t.Errorf("unexpected listings %+v", listings)
			}
		})

		t.Run("Empty Folder", func(t *testing.T) {
			rec := serve(newTestRouter(tu.NewMockStore(), nil, ""), http.MethodGet, "/songs")

			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected status 404, got %d", rec.Code)
			}
			var msg message
			json.Unmarshal(rec.Body.Bytes(), &msg)
			if msg.Message != msgNoSongs {
				t.Errorf("expected %q, got %q", msgNoSongs, msg.Message)
			}
		})

		t.Run("Listing Failure", func(t *testing.T) {
			store := tu.NewMockStore()
			store.ListErr = errors.New("offline")
			rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/songs")

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected status 500, got %d", rec.Code)
			}
			var msg message
			json.Unmarshal(rec.Body.Bytes(), &msg)
			if msg.Message != msgListFailed {
				t.Errorf("expected %q, got %q", msgListFailed, msg.Message)
			}
		})

		t.Run("Reflects Store Changes", func(t *testing.T) {
			store := tu.NewMockStore([2]string{"Song One.ogg", "1"})
			router := newTestRouter(store, nil, "")

			serve(router, http.MethodGet, "/songs")
			store.Entries = append(store.Entries, models.FileEntry{ID: "id-9", Name: "New.ogg"})
			rec := serve(router, http.MethodGet, "/songs")

			var listings []models.SongListing
			json.Unmarshal(rec.Body.Bytes(), &listings)
			if len(listings) != 2 {
				t.Errorf("expected 2 listings after store change, got %d", len(listings))
			}
		})
	})
}

func TestRouter(t *testing.T) {
	t.Run("Method Not Allowed", func(t *testing.T) {
		router := newTestRouter(tu.NewMockStore([2]string{"a.ogg", "a"}), nil, "")

		for _, target := range []string{"/songs", "/songs/a", "/song/a.ogg"} {
			rec := serve(router, http.MethodPost, target)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s: expected status 405, got %d", target, rec.Code)
			}
			if rec.Header().Get("Allow") != "GET, HEAD" {
				t.Errorf("%s: expected Allow 'GET, HEAD', got %q", target, rec.Header().Get("Allow"))
			}
		}
	})

	t.Run("Head On Get Routes", func(t *testing.T) {
		router := newTestRouter(tu.NewMockStore([2]string{"a.ogg", "audio"}), nil, "")

		t.Run("song by name sends headers only", func(t *testing.T) {
			rec := serve(router, http.MethodHead, "/song/a.ogg")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if rec.Header().Get("Content-Type") != AudioContentType {
				t.Errorf("expected %s, got %q", AudioContentType, rec.Header().Get("Content-Type"))
			}
			if rec.Body.Len() != 0 {
				t.Errorf("expected empty body, got %q", rec.Body.String())
			}
		})

		t.Run("song by slug", func(t *testing.T) {
			if rec := serve(router, http.MethodHead, "/songs/aogg"); rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
		})

		t.Run("listing", func(t *testing.T) {
			if rec := serve(router, http.MethodHead, "/songs"); rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
		})

		t.Run("missing song", func(t *testing.T) {
			if rec := serve(router, http.MethodHead, "/song/b.ogg"); rec.Code != http.StatusNotFound {
				t.Errorf("expected status 404, got %d", rec.Code)
			}
		})
	})

	t.Run("Health", func(t *testing.T) {
		store := tu.NewMockStore()
		store.ListErr = errors.New("down")
		rec := serve(newTestRouter(store, nil, ""), http.MethodGet, "/health")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
		if store.ListCalls() != 0 {
			t.Error("health must not touch the store")
		}
	})

	t.Run("Routes", func(t *testing.T) {
		routes := newTestRouter(tu.NewMockStore(), NewMetrics(), "").Routes()
		want := []string{"GET /song/{fileName}", "GET /songs/{slug}", "GET /songs", "* /health", "* /metrics"}

		if len(routes) != len(want) {
			t.Fatalf("expected %d routes, got %v", len(want), routes)
		}
		for i := range want {
			if routes[i] != want[i] {
				t.Errorf("route %d = %s, want %s", i, routes[i], want[i])
			}
		}
	})

	t.Run("Metrics Disabled", func(t *testing.T) {
		rec := serve(newTestRouter(tu.NewMockStore(), nil, ""), http.MethodGet, "/metrics")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		serve(router, http.MethodGet, "/x")

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})
}

func TestMiddleware(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("RequestLogger", func(t *testing.T) {
		t.Run("Generates Request ID", func(t *testing.T) {
			var fromCtx bool
			h := RequestLogger(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fromCtx = requestLogger(r, nil) != nil
			}))
			rec := serve(h, http.MethodGet, "/")

			if rec.Header().Get(requestIDHeader) == "" {
				t.Error("expected request id header")
			}
			if !fromCtx {
				t.Error("expected logger in request context")
			}
		})

		t.Run("Keeps Incoming Request ID", func(t *testing.T) {
			h := RequestLogger(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(requestIDHeader, "abc-123")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Header().Get(requestIDHeader) != "abc-123" {
				t.Errorf("expected abc-123, got %s", rec.Header().Get(requestIDHeader))
			}
		})
	})

	t.Run("Recoverer", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(RequestLogger(logger, nil), Recoverer(logger))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := serve(router, http.MethodGet, "/boom")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})

	t.Run("statusRecorder", func(t *testing.T) {
		rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
		if rec.code() != http.StatusOK {
			t.Errorf("expected implicit 200, got %d", rec.code())
		}

		rec.WriteHeader(http.StatusTeapot)
		rec.WriteHeader(http.StatusOK)
		rec.Write([]byte("hello"))

		if rec.code() != http.StatusTeapot {
			t.Errorf("expected first status to stick, got %d", rec.code())
		}
		if rec.bytes != 5 {
			t.Errorf("expected 5 bytes, got %d", rec.bytes)
		}
	})
}

func TestMetrics(t *testing.T) {
	counterSum := func(t *testing.T, m *Metrics, name string) float64 {
		t.Helper()
		families, err := m.Registry().Gather()
		if err != nil {
			t.Fatalf("failed to gather metrics: %v", err)
		}
		var total float64
		for _, mf := range families {
			if mf.GetName() != name {
				continue
			}
			for _, metric := range mf.GetMetric() {
				total += metric.GetCounter().GetValue()
			}
		}
		return total
	}

	t.Run("Records Requests And Bytes", func(t *testing.T) {
		metrics := NewMetrics()
		store := tu.NewMockStore([2]string{"Song One.ogg", "0123456789"})
		router := newTestRouter(store, metrics, "")

		serve(router, http.MethodGet, "/songs/song-one")
		serve(router, http.MethodGet, "/songs/missing")

		if got := counterSum(t, metrics, "songrelay_http_requests_total"); got != 2 {
			t.Errorf("expected 2 requests, got %v", got)
		}
		if got := counterSum(t, metrics, "songrelay_streamed_bytes_total"); got != 10 {
			t.Errorf("expected 10 streamed bytes, got %v", got)
		}
	})

	t.Run("Records Interrupted Streams", func(t *testing.T) {
		metrics := NewMetrics()
		store := tu.NewMockStore([2]string{"Song One.ogg", "x"})
		store.Broken = map[string]bool{"id-1": true}

		rec := serve(newTestRouter(store, metrics, ""), http.MethodGet, "/songs/song-one")

		if rec.Code != http.StatusOK {
			t.Errorf("expected headers already sent with 200, got %d", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("expected empty body, got %q", rec.Body.String())
		}
		if got := counterSum(t, metrics, "songrelay_upstream_errors_total"); got != 1 {
			t.Errorf("expected 1 upstream error, got %v", got)
		}
	})

	t.Run("Records Upstream Errors", func(t *testing.T) {
		metrics := NewMetrics()
		store := tu.NewMockStore()
		store.ListErr = errors.New("down")

		serve(newTestRouter(store, metrics, ""), http.MethodGet, "/songs")

		if got := counterSum(t, metrics, "songrelay_upstream_errors_total"); got != 1 {
			t.Errorf("expected 1 upstream error, got %v", got)
		}
	})

	t.Run("Exposition", func(t *testing.T) {
		metrics := NewMetrics()
		router := newTestRouter(tu.NewMockStore(), metrics, "")
		serve(router, http.MethodGet, "/health")

		rec := serve(router, http.MethodGet, "/metrics")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "songrelay_http_requests_total") {
			t.Error("expected relay request counter in exposition")
		}
	})

	t.Run("Nil Is Safe", func(t *testing.T) {
		var m *Metrics
		m.observeRequest("/songs", http.MethodGet, 200, time.Millisecond)
		m.upstreamError("list")
		m.streamed(10)
	})
}

func TestServer(t *testing.T) {
	t.Run("Serve Stops On Cancel", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		router := newTestRouter(tu.NewMockStore([2]string{"a.ogg", "a"}), nil, "")
		srv := NewServer(ln.Addr().String(), router, shared.NewLogger(io.Discard), time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx, ln) }()

		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			t.Fatalf("expected server to respond, got %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected clean shutdown, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("Default Shutdown Timeout", func(t *testing.T) {
		srv := NewServer(":0", http.NotFoundHandler(), nil, 0)
		if srv.shutdownTimeout != defaultShutdownTimeout {
			t.Errorf("expected %v, got %v", defaultShutdownTimeout, srv.shutdownTimeout)
		}
	})
}
