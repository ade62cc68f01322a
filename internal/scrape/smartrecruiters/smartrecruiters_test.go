package smartrecruiters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

func TestFetchPassesOffsetAndFacets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/companies/Visa/postings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		qv := r.URL.Query()
		if qv.Get("offset") != "10" || qv.Get("limit") != "10" || qv.Get("country") != "us" || qv.Get("q") != "data" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"content":[
			{"id":"744000001","name":"Data Engineer","releasedDate":"2024-05-03T12:00:00.000Z",
			 "location":{"city":"Austin","region":"TX","country":"us"},"department":{"label":"Technology"}},
			{"id":"","name":"No id"}],
			"totalFound":25,"offset":10,"limit":10}`)
	}))
	defer srv.Close()

	s := New(Company{
		Source:     types.Source{Slug: "visa", Name: "Visa", Facets: map[string]string{"country": "country", "department": "department"}},
		Identifier: "Visa",
		APIBase:    srv.URL,
	}, util.NewClient(5*time.Second, nil, "test"))

	p, err := s.Fetch(context.Background(), domain.Query{Page: 2, Keyword: "data", Filters: map[string][]string{"country": {"us"}}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(p.Jobs) != 1 || p.Total != 25 || !p.HasNext {
		t.Fatalf("page: %+v", p)
	}
	j := p.Jobs[0]
	if j.Location != "Austin, TX, us" || j.Department != "Technology" || j.PostedAt == nil {
		t.Fatalf("job: %+v", j)
	}
	if j.URL != "https://jobs.smartrecruiters.com/Visa/744000001" {
		t.Fatalf("url = %q", j.URL)
	}
}
