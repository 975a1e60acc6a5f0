package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmnaWalha99/Job-Portal/internal/csvio"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)

type memoryWriter struct{ rows []jobs.RawRecord }

func (w *memoryWriter) Write(row jobs.RawRecord) error {
	w.rows = append(w.rows, row)
	return nil
}

const listPage1 = `<html><body>
<article><h2><a href="/job/1">Go Developer</a></h2><span class="co">Acme</span></article>
<article><h2><a href="/job/2#apply">Data Analyst</a></h2><span class="co">Globex</span></article>
<article><h2><a href="/job/1">Go Developer (again)</a></h2></article>
<article><h2><a href="/job/missing">Ghost</a></h2></article>
</body></html>`

const listPage2 = `<html><body>
<article><h2><a href="http://%s/job/3">Ops</a></h2></article>
</body></html>`

func detailPage(city, salary string) string {
	return fmt.Sprintf(`<html><body>
<div class="info"><h3>Lieu de travail</h3><p>  %s </p></div>
<div class="info"><h3>Salaire proposé</h3><span>%s</span></div>
<div class="prose"><p>Build   services.</p>

<p>Ship them.</p></div>
</body></html>`, city, salary)
}

func boardServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, listPage1)
		case "2":
			fmt.Fprintf(w, listPage2, r.Host)
		default:
			fmt.Fprint(w, `<html><body><p>no results</p></body></html>`)
		}
	})
	mux.HandleFunc("/job/1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("Tunis", "1500 TND"))
	})
	mux.HandleFunc("/job/2", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("Sfax", ""))
	})
	mux.HandleFunc("/job/3", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("Sousse", "2000 DT"))
	})
	mux.HandleFunc("/job/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func boardConfig(srv *httptest.Server) SourceConfig {
	return SourceConfig{
		ListURL:      srv.URL + "/list?page={page}",
		StartPage:    1,
		MaxPages:     5,
		ItemSelector: "article",
		LinkSelector: "h2 a",
		Columns:      []string{"title", "detail_link", "company", "location", "salary", "description", "source", "scraped_at"},
		ListFields: map[string]Field{
			"title":   {Selector: "h2 a"},
			"company": {Selector: ".co"},
		},
		Fields: map[string]Field{
			"location":    infoBlockAt("lieu de travail", "p"),
			"salary":      infoBlockAt("salaire proposé", "span"),
			"description": {Selector: "div.prose", Multiline: true},
		},
	}
}

func infoBlockAt(label, value string) Field {
	return Field{Selector: "div.info", Labels: []string{label}, LabelSelector: "h3", Value: value}
}

func TestScraperWalksListingAndDetails(t *testing.T) {
	t.Parallel()

	srv, hits := boardServer(t)
	fetcher := NewCollyFetcher(CollyConfig{Timeout: 5 * time.Second})
	s, err := NewScraper(jobs.SourceKeejob, boardConfig(srv), fetcher, NewLimiter(0, 1), nil, 0, fixedClock{testNow}, nil)
	require.NoError(t, err)

	w := &memoryWriter{}
	res, err := s.Run(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, Result{Pages: 3, Listed: 4, Written: 3, Failed: 1}, res)
	assert.Equal(t, int32(3), hits.Load(), "walk stops at the first empty listing page")
	require.Len(t, w.rows, 3)

	first := w.rows[0]
	assert.Equal(t, "Go Developer", first["title"])
	assert.Equal(t, "Acme", first["company"])
	assert.Equal(t, srv.URL+"/job/1", first["detail_link"])
	assert.Equal(t, "Tunis", first["location"])
	assert.Equal(t, "1500 TND", first["salary"])
	assert.Equal(t, "Build services.\nShip them.", first["description"])
	assert.Equal(t, "keejob", first["source"])
	assert.Equal(t, "2025-11-03 09:30:00", first["scraped_at"])

	assert.Equal(t, srv.URL+"/job/2", w.rows[1]["detail_link"], "fragment is dropped")
	assert.Equal(t, "", w.rows[1]["salary"])
	assert.Equal(t, srv.URL+"/job/3", w.rows[2]["detail_link"], "absolute links are kept")
	assert.Equal(t, "Sousse", w.rows[2]["location"])
}

func TestScraperFailsWhenFirstListingPageFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := boardConfig(srv)
	retry := NewRetryPolicy(2)
	retry.baseDelay = time.Millisecond
	s, err := NewScraper(jobs.SourceKeejob, cfg, NewCollyFetcher(CollyConfig{}), nil, retry, 0, fixedClock{testNow}, nil)
	require.NoError(t, err)

	_, err = s.Run(context.Background(), &memoryWriter{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

type scriptedFetcher struct {
	calls   atomic.Int32
	respond func(n int32, rawURL string) (Page, error)
}

func (f *scriptedFetcher) Fetch(_ context.Context, rawURL string) (Page, error) {
	return f.respond(f.calls.Add(1), rawURL)
}

func TestScraperRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	f := &scriptedFetcher{respond: func(n int32, rawURL string) (Page, error) {
		switch {
		case n <= 2:
			return Page{}, &StatusError{URL: rawURL, Code: http.StatusServiceUnavailable}
		case n == 3:
			return Page{URL: rawURL, Body: []byte(`<article><h2><a href="/job/9">Dev</a></h2></article>`)}, nil
		default:
			return Page{URL: rawURL, Body: []byte(`<p></p>`)}, nil
		}
	}}
	cfg := SourceConfig{
		ListURL:      "https://board.test/list?page={page}",
		MaxPages:     1,
		ItemSelector: "article",
		LinkSelector: "h2 a",
		Columns:      []string{"title", "detail_link"},
		ListFields:   map[string]Field{"title": {Selector: "h2 a"}},
	}
	retry := NewRetryPolicy(3)
	retry.baseDelay = time.Millisecond
	s, err := NewScraper(jobs.SourceKeejob, cfg, f, nil, retry, 0, fixedClock{testNow}, nil)
	require.NoError(t, err)

	w := &memoryWriter{}
	res, err := s.Run(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, jobs.RawRecord{"title": "Dev", "detail_link": "https://board.test/job/9"}, w.rows[0])
}

func TestScraperBlocksHostAfterForbidden(t *testing.T) {
	t.Parallel()

	f := &scriptedFetcher{respond: func(n int32, rawURL string) (Page, error) {
		if n == 1 {
			return Page{URL: rawURL, Body: []byte(`<article><a href="/a">A</a></article><article><a href="/b">B</a></article><article><a href="/c">C</a></article>`)}, nil
		}
		return Page{}, &StatusError{URL: rawURL, Code: http.StatusForbidden}
	}}
	cfg := SourceConfig{
		ListURL:      "https://board.test/list?page={page}",
		MaxPages:     1,
		ItemSelector: "article",
		LinkSelector: "a",
		Columns:      []string{"detail_link"},
	}
	s, err := NewScraper(jobs.SourceKeejob, cfg, f, nil, nil, 2, fixedClock{testNow}, nil)
	require.NoError(t, err)

	res, err := s.Run(context.Background(), &memoryWriter{})
	require.ErrorIs(t, err, ErrHostBlocked)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int32(3), f.calls.Load(), "no request after the host is blocked")
}

func TestScraperHonorsCancellation(t *testing.T) {
	t.Parallel()

	srv, _ := boardServer(t)
	s, err := NewScraper(jobs.SourceKeejob, boardConfig(srv), NewCollyFetcher(CollyConfig{}), nil, nil, 0, fixedClock{testNow}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Run(ctx, &memoryWriter{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Written)
}

type failingWriter struct{}

func (failingWriter) Write(jobs.RawRecord) error { return errors.New("disk full") }

func TestScraperStopsOnWriteError(t *testing.T) {
	t.Parallel()

	srv, _ := boardServer(t)
	s, err := NewScraper(jobs.SourceKeejob, boardConfig(srv), NewCollyFetcher(CollyConfig{}), nil, nil, 0, fixedClock{testNow}, nil)
	require.NoError(t, err)

	_, err = s.Run(context.Background(), failingWriter{})
	require.ErrorContains(t, err, "disk full")
}

func TestRunWritesRawFile(t *testing.T) {
	t.Parallel()

	srv, _ := boardServer(t)
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0
	cfg.Sources = map[string]SourceConfig{string(jobs.SourceKeejob): boardConfig(srv)}
	path := filepath.Join(t.TempDir(), "raw", "keejob.csv")

	res, err := Run(context.Background(), cfg, jobs.SourceKeejob, path, fixedClock{testNow}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Written)

	rows, skipped, err := csvio.ReadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, rows, 3)
	assert.Equal(t, "Data Analyst", rows[1]["title"])
	assert.Equal(t, "Sfax", rows[1]["location"])
}

func TestNewScraperValidates(t *testing.T) {
	t.Parallel()

	_, err := NewScraper(jobs.SourceKeejob, SourceConfig{}, &scriptedFetcher{}, nil, nil, 0, fixedClock{testNow}, nil)
	require.ErrorContains(t, err, "list_url")

	srv, _ := boardServer(t)
	_, err = NewScraper(jobs.SourceKeejob, boardConfig(srv), nil, nil, nil, 0, fixedClock{testNow}, nil)
	require.ErrorContains(t, err, "fetcher")
	_, err = NewScraper(jobs.SourceKeejob, boardConfig(srv), &scriptedFetcher{}, nil, nil, 0, nil, nil)
	require.ErrorContains(t, err, "clock")
}
