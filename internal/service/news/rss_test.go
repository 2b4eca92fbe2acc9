package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	domrepo "MacroPulse/internal/domain/repository"
	xhttp "MacroPulse/pkg/http"
)

const feedA = `<?xml version="1.0"?><rss version="2.0"><channel>
<item><title> BOK holds rate </title><link>https://n/1</link></item>
<item><title>Won slides</title><link>https://n/2</link></item>
<item><title></title><link>https://n/empty</link></item>
</channel></rss>`

const feedB = `<rss version="2.0"><channel>
<item><title>Won slides (dup)</title><link>https://n/2</link></item>
<item><title>Treasury yields climb</title><link>https://n/3</link></item>
</channel></rss>`

func TestRSSSource_MergesFeeds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, feedA) })
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, feedB) })
	mux.HandleFunc("/bad", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewRSSSource(xhttp.NewClient(), []string{srv.URL + "/a", srv.URL + "/bad", srv.URL + "/b"}, 10, nil)
	hs, err := src.Headlines(context.Background())
	if err != nil {
		t.Fatalf("headlines: %v", err)
	}
	want := []string{"BOK holds rate", "Won slides", "Treasury yields climb"}
	if len(hs) != len(want) {
		t.Fatalf("got %+v", hs)
	}
	for i, w := range want {
		if hs[i].Title != w {
			t.Fatalf("idx %d: %q want %q", i, hs[i].Title, w)
		}
	}

	only := NewRSSSource(xhttp.NewClient(), []string{srv.URL + "/bad"}, 10, nil)
	if _, err := only.Headlines(context.Background()); !errors.Is(err, domrepo.ErrSourceUnavailable) {
		t.Fatalf("err=%v", err)
	}
}
