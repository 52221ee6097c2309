package loader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestIsRemote(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"http://example.com/a.png", true},
		{"https://example.com/a.png", true},
		{"/home/me/a.png", false},
		{"httpfile.png", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRemote(tt.path); got != tt.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFetcherCachesDownloads(t *testing.T) {
	body := encodePNG(t, testImage(2, 2))
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/photo.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	f, err := NewFetcher(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	url := srv.URL + "/photo.png"
	if f.IsCached(url) {
		t.Fatal("IsCached() = true before the first fetch")
	}
	for i := 0; i < 2; i++ {
		data, err := f.Fetch(context.Background(), url)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !bytes.Equal(data, body) {
			t.Fatal("Fetch() returned different bytes")
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
	if !f.IsCached(url) {
		t.Error("IsCached() = false after fetch")
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("Fetch(404) succeeded")
	}
	if f.IsCached(srv.URL + "/missing.png") {
		t.Error("failed download was cached")
	}
}

func TestFetcherHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f, err := NewFetcher(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, srv.URL+"/slow.png"); err == nil {
		t.Error("Fetch() with a cancelled context succeeded")
	}
}
