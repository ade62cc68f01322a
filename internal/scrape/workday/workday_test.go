package workday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

func TestParseBoardURL(t *testing.T) {
	b, err := parseBoardURL("https://adobe.wd5.myworkdayjobs.com/en-us/external_experienced/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.Tenant != "adobe" || b.Site != "external_experienced" || b.Locale != "en-US" {
		t.Fatalf("board: %+v", b)
	}
	if got := b.cxsBase(); got != "https://adobe.wd5.myworkdayjobs.com/wday/cxs/adobe/external_experienced" {
		t.Fatalf("cxsBase=%q", got)
	}
	if got := b.jobURL("/job/San-Jose/Engineer_R1"); got != "https://adobe.wd5.myworkdayjobs.com/en-us/external_experienced/job/San-Jose/Engineer_R1" {
		t.Fatalf("jobURL=%q", got)
	}

	b, err = parseBoardURL("https://nvidia.wd5.myworkdayjobs.com/NVIDIAExternalCareerSite")
	if err != nil || b.Site != "NVIDIAExternalCareerSite" || b.Locale != "" {
		t.Fatalf("nvidia board: %+v err=%v", b, err)
	}
	if _, err := parseBoardURL("https://example.com/"); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func newScraper(t *testing.T, siteURL string) *Scraper {
	t.Helper()
	s, err := New(Company{
		Source: types.Source{
			Slug:   "acme",
			Name:   "Acme",
			Facets: map[string]string{"country": "locationCountry", "jobCategory": "jobFamilyGroup"},
		},
		SiteURL: siteURL,
		Tenant:  "acme",
	}, util.NewClient(5*time.Second, nil, "test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestFetchBootstrapsAndHydrates(t *testing.T) {
	var gotBody searchRequest
	var gotToken, gotQueryToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/en-US/Careers":
			http.SetCookie(w, &http.Cookie{Name: "CALYPSO_CSRF_TOKEN", Value: "tok-1", Path: "/"})
			fmt.Fprint(w, "<html><body>careers</body></html>")
		case r.Method == http.MethodPost && r.URL.Path == "/wday/cxs/acme/Careers/jobs":
			gotToken = r.Header.Get("X-Calypso-Csrf-Token")
			gotQueryToken = r.URL.Query().Get("X-CALYPSO-CSRF-TOKEN")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			fmt.Fprint(w, `{"total": 25, "jobPostings": [
				{"title": "Platform Engineer", "externalPath": "/job/Austin/Platform-Engineer_R100",
				 "locationsText": "2 Locations", "postedOn": "Posted Today", "bulletFields": ["R100"]}]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/wday/cxs/acme/Careers/job/Austin/Platform-Engineer_R100":
			fmt.Fprint(w, `{"jobPostingInfo": {"jobDescription": "<p>Own the platform</p>", "location": "Austin, TX",
				"additionalLocations": ["Remote, US"], "startDate": "2024-05-07"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := newScraper(t, srv.URL+"/en-US/Careers")
	q := domain.Query{Page: 2, Keyword: "platform", Filters: map[string][]string{"country": {"US", "CA"}}}
	p, err := s.Fetch(context.Background(), q)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotToken != "tok-1" || gotQueryToken != "tok-1" {
		t.Fatalf("token header=%q query=%q", gotToken, gotQueryToken)
	}
	if gotBody.Offset != 10 || gotBody.Limit != 10 || gotBody.SearchText != "platform" || len(gotBody.AppliedFacets["locationCountry"]) != 2 {
		t.Fatalf("request body: %+v", gotBody)
	}
	if p.Total != 25 || !p.HasNext || len(p.Jobs) != 1 {
		t.Fatalf("page: %+v", p)
	}
	j := p.Jobs[0]
	if j.ID != "R100" || j.Location != "Austin, TX" || j.Description != "<p>Own the platform</p>" {
		t.Fatalf("job: %+v", j)
	}
	if j.URL != srv.URL+"/en-US/Careers/job/Austin/Platform-Engineer_R100" {
		t.Fatalf("url=%q", j.URL)
	}
	if j.FullLocation() != "Austin, TX, Remote, US" {
		t.Fatalf("full location=%q", j.FullLocation())
	}
}

func TestFetchRetriesOnceWithFreshSession(t *testing.T) {
	var boots, posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			n := boots.Add(1)
			fmt.Fprintf(w, `<script>window.workday = { token: "tok-%d" };</script>`, n)
		case http.MethodPost:
			posts.Add(1)
			if r.Header.Get("X-Calypso-Csrf-Token") != "tok-2" {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"total": 0, "jobPostings": []}`)
		}
	}))
	defer srv.Close()

	p, err := newScraper(t, srv.URL+"/Careers").Fetch(context.Background(), domain.Query{Page: 1})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if boots.Load() != 2 || posts.Load() != 2 || len(p.Jobs) != 0 || p.HasNext {
		t.Fatalf("boots=%d posts=%d page=%+v", boots.Load(), posts.Load(), p)
	}
}

func TestCloudflareBlockIsRemembered(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Server", "cloudflare")
		w.Header().Set("CF-RAY", "abc")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "Attention Required! | Cloudflare")
	}))
	defer srv.Close()

	s := newScraper(t, srv.URL+"/Careers")
	if _, err := s.Fetch(context.Background(), domain.Query{}); !errors.Is(err, ErrBlocked) {
		t.Fatalf("want ErrBlocked, got %v", err)
	}
	before := calls.Load()
	if _, err := s.Fetch(context.Background(), domain.Query{}); !errors.Is(err, ErrBlocked) {
		t.Fatalf("want ErrBlocked on second call, got %v", err)
	}
	if calls.Load() != before {
		t.Fatalf("blocked host should not be contacted again")
	}
}
