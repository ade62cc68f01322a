package atlassian

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

const defaultBase = "https://www.atlassian.com"

type Company struct {
	types.Source
	APIBase string
}

type Scraper struct {
	co   Company
	c    *util.Client
	memo *util.ListMemo[listing]
}

func New(co Company, c *util.Client, memoTTL time.Duration) *Scraper {
	if co.APIBase == "" {
		co.APIBase = defaultBase
	}
	co.APIBase = strings.TrimRight(co.APIBase, "/")
	return &Scraper{co: co, c: c, memo: util.NewListMemo[listing](memoTTL)}
}

func (s *Scraper) Name() string { return "atlassian" }

type listing struct {
	ID               util.FlexString `json:"id"`
	Title            string          `json:"title"`
	Locations        []string        `json:"locations"`
	Category         string          `json:"category"`
	Overview         string          `json:"overview"`
	Responsibilities string          `json:"responsibilities"`
	Qualifications   string          `json:"qualifications"`
	ApplyURL         string          `json:"applyUrl"`
	PortalJobPost    struct {
		PortalURL   string `json:"portalUrl"`
		UpdatedDate string `json:"updatedDate"`
	} `json:"portalJobPost"`
}

func (l listing) field(name string) []string {
	switch name {
	case "category":
		return []string{l.Category}
	case "country", "location":
		return l.Locations
	}
	return nil
}

// ListURL asks for the upstream filter set; the endpoint returns every match in one response.
func (s *Scraper) ListURL(q domain.Query) string {
	v := url.Values{}
	for facet, param := range s.co.Facets {
		if val := q.First(facet); val != "" {
			v.Set(param, val)
		}
	}
	util.AddStatic(v, s.co.Params)
	u := s.co.APIBase + "/endpoint/careers/listings"
	if len(v) > 0 {
		u += "?" + util.EncodeQuery(v)
	}
	return u
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	u := s.ListURL(q)
	all, fetchedAt, err := s.memo.Get(ctx, u, func(ctx context.Context) ([]listing, error) {
		var rows []listing
		if err := s.c.GetJSON(ctx, u, &rows); err != nil {
			return nil, fmt.Errorf("atlassian listings: %w", err)
		}
		return merge(rows), nil
	})
	if err != nil {
		return domain.Page{}, err
	}

	facets := util.FacetSet{}
	var matched []domain.Job
	for _, l := range all {
		ok := util.ContainsFold(q.Keyword, l.Title)
		for facet, param := range s.co.Facets {
			vals := l.field(param)
			facets.Add(facet, vals...)
			if sel := q.Values(facet); len(sel) > 0 {
				// Locations read like "Sydney, Australia", so countries match by substring.
				if param == "category" {
					ok = ok && util.MatchAny(sel, vals...)
				} else {
					ok = ok && anyContains(sel, vals)
				}
			}
		}
		if !ok {
			continue
		}
		j := domain.Job{
			Company:             s.co.Name,
			ID:                  string(l.ID),
			Title:               util.CleanText(l.Title),
			PostedDate:          l.PortalJobPost.UpdatedDate,
			PostedAt:            util.ParsePosted(l.PortalJobPost.UpdatedDate),
			Department:          l.Category,
			Description:         l.Overview,
			BasicQualifications: l.Qualifications,
			Responsibilities:    l.Responsibilities,
			URL:                 util.FirstNonEmpty(l.PortalJobPost.PortalURL, l.ApplyURL),
		}
		if len(l.Locations) > 0 {
			j.Location = util.NormalizeLocation(l.Locations[0])
			j.SecondaryLocations = l.Locations[1:]
		}
		matched = append(matched, j)
	}
	return util.LocalPage(s.co.Slug, matched, q, s.co.Size(), facets, fetchedAt), nil
}

// merge folds rows that share an id, one row per location, into one listing.
func merge(rows []listing) []listing {
	index := map[string]int{}
	var out []listing
	for _, r := range rows {
		i, seen := index[string(r.ID)]
		if !seen {
			index[string(r.ID)] = len(out)
			r.Locations = append([]string(nil), r.Locations...)
			out = append(out, r)
			continue
		}
		for _, loc := range r.Locations {
			if !containsFold(out[i].Locations, loc) {
				out[i].Locations = append(out[i].Locations, loc)
			}
		}
	}
	return out
}

func anyContains(selected, vals []string) bool {
	for _, v := range vals {
		for _, sel := range selected {
			if util.ContainsFold(sel, v) {
				return true
			}
		}
	}
	return false
}

func containsFold(xs []string, s string) bool {
	for _, x := range xs {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}

func (s *Scraper) Forget() { s.memo.Forget() }
