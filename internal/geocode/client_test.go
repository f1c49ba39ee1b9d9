package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/parser"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	fetcher := parser.NewFetcher(zerolog.Nop(), parser.WithRatePerHost(1000))
	return NewClient(fetcher, srv.URL, srv.URL), srv
}

func TestClientPostcodeLive(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		case "/postcodes/CV12%209JA", "/postcodes/CV12 9JA":
			w.Write([]byte(`{"status":200,"result":{"latitude":52.49,"longitude":-1.46}}`))
		default:
			http.NotFound(w, r)
		}
	}))

	p, err := client.Postcode(context.Background(), "CV12 9JA")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Lat != 52.49 || p.Lng != -1.46 {
		t.Errorf("Postcode = %+v, want 52.49,-1.46", p)
	}
}

func TestClientPostcodeFallsBackToTerminated(t *testing.T) {
	var terminatedHit bool
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/robots.txt":
			http.NotFound(w, r)
		case r.URL.Path == "/postcodes/DE13 8AX" || r.URL.Path == "/postcodes/DE13%208AX":
			http.NotFound(w, r)
		default:
			terminatedHit = true
			w.Write([]byte(`{"status":200,"result":{"latitude":52.8,"longitude":-1.7}}`))
		}
	}))

	p, err := client.Postcode(context.Background(), "DE13 8AX")
	if err != nil {
		t.Fatal(err)
	}
	if !terminatedHit {
		t.Error("terminated register was not consulted")
	}
	if p == nil || p.Lat != 52.8 {
		t.Errorf("Postcode = %+v, want terminated register hit", p)
	}
}

func TestClientPostcodeUnknownIsMiss(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	p, err := client.Postcode(context.Background(), "ZZ99 9ZZ")
	if err != nil {
		t.Fatalf("unknown postcode should be a miss, got error: %v", err)
	}
	if p != nil {
		t.Errorf("Postcode = %+v, want nil", p)
	}
}

func TestClientSearch(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("countrycodes"); got != "gb" {
			t.Errorf("countrycodes = %q, want gb", got)
		}
		if got := r.URL.Query().Get("q"); got != "Eland Lodge" {
			t.Errorf("q = %q", got)
		}
		w.Write([]byte(`[{"lat":"52.81","lon":"-1.75","display_name":"Eland Lodge"}]`))
	}))

	p, err := client.Search(context.Background(), "Eland Lodge")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Lat != 52.81 || p.Lng != -1.75 {
		t.Errorf("Search = %+v", p)
	}
}

func TestClientSearchNoResults(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[]`))
	}))

	p, err := client.Search(context.Background(), "Nowhere At All")
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("Search = %+v, want nil", p)
	}
}
