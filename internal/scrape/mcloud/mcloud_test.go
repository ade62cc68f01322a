package mcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

// feed serves total postings in batches of at most per, honoring the 1-based offset.
func feed(t *testing.T, total, per int, calls *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("organization") != "2071" {
			t.Errorf("organization: %s", r.URL.RawQuery)
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var rows []posting
		for i := offset; i < offset+per && i <= total; i++ {
			country := "US"
			if i%2 == 0 {
				country = "IN"
			}
			rows = append(rows, posting{
				ID:              util.FlexString(fmt.Sprint(i)),
				Title:           fmt.Sprintf("Nurse %d", i),
				PrimaryCity:     "Eden Prairie",
				PrimaryCountry:  country,
				PrimaryCategory: "Nursing",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"totalHits": total, "queryResult": rows})
	}))
}

func TestLoadAllStepsByBatchAndDedupes(t *testing.T) {
	var calls atomic.Int64
	srv := feed(t, 23, 10, &calls)
	defer srv.Close()

	s := New(Company{
		Source:       types.Source{Slug: "unitedhealthcare", Name: "UnitedHealth Group", Facets: map[string]string{"country": "country"}},
		Organization: "2071",
		APIBase:      srv.URL,
	}, util.NewClient(5*time.Second, nil, "test"), time.Minute)

	p, err := s.Fetch(context.Background(), domain.Query{Page: 3})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Total != 23 || len(p.Jobs) != 3 || p.HasNext {
		t.Fatalf("page 3: total=%d n=%d next=%v", p.Total, len(p.Jobs), p.HasNext)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d want 3", calls.Load())
	}

	p, _ = s.Fetch(context.Background(), domain.Query{Page: 1, Filters: map[string][]string{"country": {"in"}}})
	if p.Total != 11 {
		t.Fatalf("country filter total=%d", p.Total)
	}
	if p.Jobs[0].Location != "Eden Prairie, IN" {
		t.Fatalf("location=%q", p.Jobs[0].Location)
	}
}
