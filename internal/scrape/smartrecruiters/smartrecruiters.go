package smartrecruiters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const defaultAPIBase = "https://api.smartrecruiters.com"

type Company struct {
	types.Source
	// Identifier is the SmartRecruiters company identifier used in URLs, e.g.
	// https://jobs.smartrecruiters.com/<identifier>
	Identifier string
	APIBase    string
}

type Scraper struct {
	co Company
	c  *util.Client
}

func New(co Company, c *util.Client) *Scraper {
	if co.APIBase == "" {
		co.APIBase = defaultAPIBase
	}
	co.APIBase = strings.TrimRight(co.APIBase, "/")
	return &Scraper{co: co, c: c}
}

func (s *Scraper) Name() string { return "smartrecruiters" }

// { "content": [...], "totalFound": N, "offset": O, "limit": L }
type postingsResponse struct {
	Content    []posting `json:"content"`
	TotalFound int       `json:"totalFound"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}

type posting struct {
	ID           string `json:"id"`
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	ReleasedDate string `json:"releasedDate"`
	Ref          string `json:"ref"`
	Location     struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		Remote  bool   `json:"remote"`
	} `json:"location"`
	Department struct {
		Label string `json:"label"`
	} `json:"department"`
	Function struct {
		Label string `json:"label"`
	} `json:"function"`
}

func (s *Scraper) ListURL(q domain.Query) string {
	size := s.co.Size()
	v := util.FacetParams(q, s.co.Facets)
	v.Set("limit", strconv.Itoa(size))
	v.Set("offset", strconv.Itoa(q.Offset(size)))
	if q.Keyword != "" {
		v.Set("q", q.Keyword)
	}
	util.AddStatic(v, s.co.Params)
	return fmt.Sprintf("%s/v1/companies/%s/postings?%s", s.co.APIBase, url.PathEscape(s.co.Identifier), util.EncodeQuery(v))
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	ident := strings.TrimSpace(s.co.Identifier)
	if ident == "" {
		return domain.Page{}, fmt.Errorf("smartrecruiters: empty company identifier")
	}

	var pr postingsResponse
	if err := s.c.GetJSON(ctx, s.ListURL(q), &pr); err != nil {
		return domain.Page{}, fmt.Errorf("smartrecruiters postings: %w", err)
	}

	jobs := make([]domain.Job, 0, len(pr.Content))
	for _, p := range pr.Content {
		title := strings.TrimSpace(p.Name)
		id := strings.TrimSpace(util.FirstNonEmpty(p.ID, p.UUID, p.Ref))
		if title == "" || id == "" {
			continue
		}
		loc := util.JoinNonEmpty(", ", p.Location.City, p.Location.Region, p.Location.Country)
		if p.Location.Remote && loc == "" {
			loc = "Remote"
		}
		jobs = append(jobs, domain.Job{
			Company:    s.co.Name,
			ID:         id,
			Title:      util.CleanText(title),
			PostedDate: p.ReleasedDate,
			PostedAt:   util.ParsePosted(p.ReleasedDate),
			Location:   util.NormalizeLocation(loc),
			Department: util.FirstNonEmpty(p.Department.Label, p.Function.Label),
			URL:        fmt.Sprintf("https://jobs.smartrecruiters.com/%s/%s", ident, id),
		})
	}
	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), pr.TotalFound), nil
}
