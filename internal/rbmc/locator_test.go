package rbmc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
)

func TestLocatorURL(t *testing.T) {
	l := NewLocator(http.DefaultClient, "http://archive")

	// 2021-10-11 is ordinal day 284: unpadded in the path, padded in the
	// file name, station lowercased.
	day, _ := ion.ParseDateKey("2021-10-11")
	if got := l.URL("PRGU", day); got != "http://archive/2021/284/prgu2841.zip" {
		t.Errorf("URL = %q", got)
	}
}

func TestLocateFound(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
	}))
	defer srv.Close()

	l := NewLocator(srv.Client(), srv.URL)
	day, _ := ion.ParseDateKey("2021-10-11")

	u, err := l.Locate(context.Background(), "PRGU", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodHead {
		t.Errorf("method = %s, want HEAD", gotMethod)
	}
	if gotPath != "/2021/284/prgu2841.zip" {
		t.Errorf("path = %q", gotPath)
	}
	if u != srv.URL+"/2021/284/prgu2841.zip" {
		t.Errorf("url = %q", u)
	}
}

func TestLocateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewLocator(srv.Client(), srv.URL)
	day, _ := ion.ParseDateKey("2021-10-11")

	if _, err := l.Locate(context.Background(), "PRGU", day); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
