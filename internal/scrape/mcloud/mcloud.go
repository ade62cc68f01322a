package mcloud

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const (
	defaultAPIBase = "https://jobsapi-internal.m-cloud.io"
	batchSize      = 500
	maxBatches     = 40
)

// Company is an m-cloud job feed (UnitedHealth Group is organization 2071). Facets filter
// locally on category and country.
type Company struct {
	types.Source
	Organization string
	APIBase      string
}

type Scraper struct {
	co   Company
	c    *util.Client
	memo *util.ListMemo[posting]
}

func New(co Company, c *util.Client, memoTTL time.Duration) *Scraper {
	if co.APIBase == "" {
		co.APIBase = defaultAPIBase
	}
	co.APIBase = strings.TrimRight(co.APIBase, "/")
	return &Scraper{co: co, c: c, memo: util.NewListMemo[posting](memoTTL)}
}

func (s *Scraper) Name() string { return "mcloud" }

type posting struct {
	ID              util.FlexString `json:"id"`
	Title           string          `json:"title"`
	URL             string          `json:"url"`
	OpenDate        string          `json:"open_date"`
	PrimaryCity     string          `json:"primary_city"`
	PrimaryState    string          `json:"primary_state"`
	PrimaryCountry  string          `json:"primary_country"`
	PrimaryCategory string          `json:"primary_category"`
	Description     string          `json:"description"`
}

type feedResponse struct {
	TotalHits   int       `json:"totalHits"`
	QueryResult []posting `json:"queryResult"`
}

func (p posting) values(field string) []string {
	switch field {
	case "category":
		return []string{p.PrimaryCategory}
	case "country":
		return []string{p.PrimaryCountry}
	case "city":
		return []string{p.PrimaryCity}
	}
	return nil
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	all, fetchedAt, err := s.memo.Get(ctx, s.co.Slug, s.loadAll)
	if err != nil {
		return domain.Page{}, err
	}

	facets := util.FacetSet{}
	var matched []domain.Job
	for _, p := range all {
		for facet, field := range s.co.Facets {
			facets.Add(facet, p.values(field)...)
		}
		ok := util.ContainsFold(q.Keyword, p.Title)
		for facet, field := range s.co.Facets {
			ok = ok && util.MatchAny(q.Values(facet), p.values(field)...)
		}
		if ok {
			matched = append(matched, s.toJob(p))
		}
	}
	return util.LocalPage(s.co.Slug, matched, q, s.co.Size(), facets, fetchedAt), nil
}

// loadAll walks the 1-based offset until totalHits is reached or a batch adds nothing new.
func (s *Scraper) loadAll(ctx context.Context) ([]posting, error) {
	var out []posting
	seen := map[string]bool{}
	offset := 1
	for i := 0; i < maxBatches; i++ {
		v := url.Values{
			"organization": {s.co.Organization},
			"offset":       {fmt.Sprint(offset)},
			"limit":        {fmt.Sprint(batchSize)},
			"format":       {"json"},
		}
		var res feedResponse
		if err := s.c.GetJSON(ctx, s.co.APIBase+"/api/job?"+v.Encode(), &res); err != nil {
			if len(out) > 0 {
				return out, nil
			}
			return nil, fmt.Errorf("mcloud offset %d: %w", offset, err)
		}

		added := 0
		for _, p := range res.QueryResult {
			if p.ID == "" || seen[p.ID.String()] {
				continue
			}
			seen[p.ID.String()] = true
			out = append(out, p)
			added++
		}
		offset += len(res.QueryResult)
		if added == 0 || len(res.QueryResult) == 0 || (res.TotalHits > 0 && len(out) >= res.TotalHits) {
			break
		}
	}
	return out, nil
}

func (s *Scraper) toJob(p posting) domain.Job {
	return domain.Job{
		Company:     s.co.Name,
		ID:          p.ID.String(),
		Title:       util.CleanText(p.Title),
		PostedDate:  p.OpenDate,
		PostedAt:    util.ParsePosted(p.OpenDate),
		Location:    util.JoinNonEmpty(", ", p.PrimaryCity, p.PrimaryState, p.PrimaryCountry),
		Department:  p.PrimaryCategory,
		Description: p.Description,
		URL:         p.URL,
	}
}

func (s *Scraper) Forget() { s.memo.Forget() }
