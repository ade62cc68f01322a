package turing

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

const defaultBase = "https://careers.turing.com"

type Company struct {
	types.Source
	APIBase string
}

type Scraper struct {
	co   Company
	c    *util.Client
	memo *util.ListMemo[post]
}

func New(co Company, c *util.Client, memoTTL time.Duration) *Scraper {
	if co.APIBase == "" {
		co.APIBase = defaultBase
	}
	co.APIBase = strings.TrimRight(co.APIBase, "/")
	return &Scraper{co: co, c: c, memo: util.NewListMemo[post](memoTTL)}
}

func (s *Scraper) Name() string { return "turing" }

type post struct {
	ID       util.FlexString `json:"post_id"`
	Title    string          `json:"post_title"`
	Location string          `json:"post_location_name"`
}

// ListURL filters by department and office upstream. Turing ignores paging, so the URL has none.
func (s *Scraper) ListURL(q domain.Query) string {
	v := url.Values{}
	for facet, param := range s.co.Facets {
		if val := q.First(facet); val != "" {
			v.Set(param, val)
		}
	}
	util.AddStatic(v, s.co.Params)
	u := s.co.APIBase + "/api/v3/job-posts"
	if len(v) > 0 {
		u += "?" + util.EncodeQuery(v)
	}
	return u
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	u := s.ListURL(q)
	posts, fetchedAt, err := s.memo.Get(ctx, u, func(ctx context.Context) ([]post, error) {
		var out []post
		if err := s.c.GetJSON(ctx, u, &out); err != nil {
			return nil, fmt.Errorf("turing job posts: %w", err)
		}
		return out, nil
	})
	if err != nil {
		return domain.Page{}, err
	}

	var jobs []domain.Job
	for _, p := range posts {
		if !util.ContainsFold(q.Keyword, p.Title) {
			continue
		}
		id := string(p.ID)
		jobs = append(jobs, domain.Job{
			Company:  s.co.Name,
			ID:       id,
			Title:    util.CleanText(p.Title),
			Location: util.NormalizeLocation(p.Location),
			URL:      defaultBase + "/job/" + url.PathEscape(id),
		})
	}
	return util.LocalPage(s.co.Slug, jobs, q, s.co.Size(), util.FacetSet{}, fetchedAt), nil
}

func (s *Scraper) Forget() { s.memo.Forget() }
