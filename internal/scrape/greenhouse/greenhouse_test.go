package greenhouse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const spacexBoard = `{"jobs": [
 {"id": 1, "title": "Avionics Engineer", "absolute_url": "https://boards.greenhouse.io/spacex/jobs/1",
  "updated_at": "2024-05-07T10:00:00-04:00", "location": {"name": "Hawthorne, CA"},
  "content": "&lt;p&gt;Fly&lt;/p&gt;",
  "departments": [{"name": "Engineering"}],
  "metadata": [{"name": "Discipline", "value": "Avionics"}, {"name": "Program", "value": ["Starship", "Falcon"]}]},
 {"id": 2, "title": "Welder", "absolute_url": "https://boards.greenhouse.io/spacex/jobs/2",
  "location": {"name": "Starbase, TX"},
  "metadata": [{"name": "Discipline", "value": "Production"}, {"name": "Program", "value": null}]}
]}`

const globalBoard = `{"jobs": [
 {"id": 3, "title": "Starlink Field Engineer", "absolute_url": "https://boards.greenhouse.io/spacexglobal/jobs/3",
  "location": {"name": "London, UK"},
  "metadata": [{"name": "Discipline", "value": "Avionics"}, {"name": "Program", "value": ["Starlink"]}]},
 {"id": 1, "title": "Avionics Engineer (dup)", "location": {"name": "Hawthorne, CA"}}
]}`

func newServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("content") != "true" {
			t.Errorf("content=true missing: %s", r.URL)
		}
		switch r.URL.Path {
		case "/v1/boards/spacex/jobs":
			fmt.Fprint(w, spacexBoard)
		case "/v1/boards/spacexglobal/jobs":
			fmt.Fprint(w, globalBoard)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newScraper(base string, boards ...string) *Scraper {
	return New(Company{
		Source: types.Source{
			Slug: "spacex",
			Name: "SpaceX",
			Facets: map[string]string{
				"location":   "location",
				"discipline": "meta:Discipline",
				"program":    "meta:Program",
			},
		},
		Boards:  boards,
		APIBase: base,
	}, util.NewClient(5*time.Second, nil, "test"), time.Minute)
}

func TestFetchMergesBoardsAndFilters(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits)
	defer srv.Close()
	s := newScraper(srv.URL, "spacex", "spacexglobal")

	p, err := s.Fetch(context.Background(), domain.Query{Page: 1})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Total != 3 || len(p.Jobs) != 3 || p.HasNext {
		t.Fatalf("merged page: total=%d n=%d next=%v", p.Total, len(p.Jobs), p.HasNext)
	}
	if got := p.Facets["program"]; strings.Join(got, ",") != "Falcon,Starlink,Starship" {
		t.Fatalf("program facet values: %v", got)
	}
	if p.Jobs[0].Description != "<p>Fly</p>" {
		t.Fatalf("content should be unescaped: %q", p.Jobs[0].Description)
	}

	p, err = s.Fetch(context.Background(), domain.Query{Page: 1, Filters: map[string][]string{
		"discipline": {"avionics"},
		"program":    {"Starlink"},
	}})
	if err != nil {
		t.Fatalf("Fetch filtered: %v", err)
	}
	if len(p.Jobs) != 1 || p.Jobs[0].ID != "3" {
		t.Fatalf("filtered: %+v", p.Jobs)
	}

	if hits.Load() != 2 {
		t.Fatalf("boards should be fetched once across pages, got %d requests", hits.Load())
	}
}

func TestFetchKeywordAndPaging(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits)
	defer srv.Close()
	s := newScraper(srv.URL, "spacex")
	s.co.PageSize = 1

	p, err := s.Fetch(context.Background(), domain.Query{Page: 1})
	if err != nil || !p.HasNext || len(p.Jobs) != 1 {
		t.Fatalf("page 1: %+v err=%v", p, err)
	}
	p, _ = s.Fetch(context.Background(), domain.Query{Page: 1, Keyword: "weld"})
	if len(p.Jobs) != 1 || p.Jobs[0].Title != "Welder" {
		t.Fatalf("keyword: %+v", p.Jobs)
	}
}

func TestFetchFailsWhenEveryBoardFails(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits)
	defer srv.Close()

	if _, err := newScraper(srv.URL, "missing").Fetch(context.Background(), domain.Query{}); err == nil {
		t.Fatalf("expected error")
	}
	p, err := newScraper(srv.URL, "missing", "spacex").Fetch(context.Background(), domain.Query{})
	if err != nil || len(p.Jobs) != 2 {
		t.Fatalf("partial boards should still list: n=%d err=%v", len(p.Jobs), err)
	}
}

func TestPagesCarryBoardFetchTime(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits)
	defer srv.Close()
	s := newScraper(srv.URL, "spacex", "spacexglobal")

	before := time.Now()
	first, err := s.Fetch(context.Background(), domain.Query{Page: 1})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if first.FetchedAt.Before(before.Add(-time.Second)) || first.FetchedAt.After(time.Now()) {
		t.Fatalf("FetchedAt=%v outside the fetch window", first.FetchedAt)
	}

	time.Sleep(20 * time.Millisecond)
	second, err := s.Fetch(context.Background(), domain.Query{Page: 2})
	if err != nil {
		t.Fatalf("Fetch page 2: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("boards fetched %d times, want 2", hits.Load())
	}
	if !second.FetchedAt.Equal(first.FetchedAt) {
		t.Fatalf("page 2 fetched at %v, want the list time %v", second.FetchedAt, first.FetchedAt)
	}
}
