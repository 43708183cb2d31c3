package photos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newIndexServer(t *testing.T, images func(base string) []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/index", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vin") == "UNKNOWN" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"images": images(srv.URL)})
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img/broken.jpg" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("jpeg:" + r.URL.Path))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPhotos_DownloadsUpToMaxAndSkipsBroken(t *testing.T) {
	srv := newIndexServer(t, func(base string) []string {
		return []string{base + "/img/broken.jpg", base + "/img/a.jpg", base + "/img/b.jpg", base + "/img/c.jpg"}
	})
	s := New(srv.URL+"/index?vin=%s", time.Second, 2)

	got, err := s.Photos(context.Background(), "ZARFT12345678901X")
	if err != nil {
		t.Fatalf("Photos: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	if got[0].Name != "a.jpg" || string(got[0].Data) != "jpeg:/img/a.jpg" || got[1].Name != "b.jpg" {
		t.Fatalf("unexpected photos: %+v", got)
	}
}

func TestPhotos_UnknownVIN_Empty(t *testing.T) {
	srv := newIndexServer(t, func(string) []string { return nil })
	s := New(srv.URL+"/index?vin=%s", time.Second, 5)

	got, err := s.Photos(context.Background(), "UNKNOWN")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected (empty, nil), got (%v, %v)", got, err)
	}
}

func TestPhotos_AllBroken(t *testing.T) {
	srv := newIndexServer(t, func(base string) []string { return []string{base + "/img/broken.jpg"} })
	s := New(srv.URL+"/index?vin=%s", time.Second, 5)

	if _, err := s.Photos(context.Background(), "ZARFT12345678901X"); err == nil {
		t.Fatalf("expected error when every download fails")
	}
}

func TestPhotos_NotConfigured(t *testing.T) {
	s := New("", time.Second, 5)
	if _, err := s.Photos(context.Background(), "ZARFT12345678901X"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestPhotos_IndexError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	s := New(srv.URL+"/?vin=%s", time.Second, 5)
	if _, err := s.Photos(context.Background(), "ZARFT12345678901X"); err == nil {
		t.Fatalf("expected index error")
	}
}

func TestNew_ClampsMax(t *testing.T) {
	if New("x", 0, 0).Max != 10 || New("x", 0, 50).Max != 10 || New("x", 0, 3).Max != 3 {
		t.Fatalf("unexpected Max clamping")
	}
}

func TestPhotoName_Fallback(t *testing.T) {
	if got := photoName("https://cdn.example/", 1); got != "photo-2.jpg" {
		t.Fatalf("photoName = %q", got)
	}
}
