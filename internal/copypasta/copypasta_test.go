package copypasta

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchReturnsFirstBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/r/copypasta/search.json") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "navy seals" {
			t.Errorf("q = %q", got)
		}
		if r.Header.Get("User-Agent") == "" || strings.HasPrefix(r.Header.Get("User-Agent"), "Go-http-client") {
			t.Errorf("User-Agent = %q, must not be the default", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`{"data":{"children":[
			{"data":{"selftext":""}},
			{"data":{"selftext":"What did you just say about me?"}},
			{"data":{"selftext":"second"}}]}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Client: srv.Client()}
	got, err := c.Search("navy seals")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got != "What did you just say about me?" {
		t.Errorf("Search = %q", got)
	}
}

func TestSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"children":[]}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := c.Search("xyzzy"); err == nil {
		t.Fatal("want an error for an empty result set")
	}
}

func TestSearchRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := c.Search("anything"); err == nil {
		t.Fatal("want an error for a non-200 status")
	}
}
