package amazon

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const defaultBase = "https://amazon.jobs"

type Company struct {
	types.Source
	BaseURL string // https://amazon.jobs
	Locale  string // en-gb
}

type Scraper struct {
	co Company
	c  *util.Client
}

func New(co Company, c *util.Client) *Scraper {
	if co.BaseURL == "" {
		co.BaseURL = defaultBase
	}
	if co.Locale == "" {
		co.Locale = "en-gb"
	}
	return &Scraper{co: co, c: c}
}

func (s *Scraper) Name() string { return "amazon" }

type searchResponse struct {
	Hits int `json:"hits"`
	Jobs []struct {
		IDIcims                 string `json:"id_icims"`
		Title                   string `json:"title"`
		PostedDate              string `json:"posted_date"`
		JobPath                 string `json:"job_path"`
		NormalizedLocation      string `json:"normalized_location"`
		Location                string `json:"location"`
		JobCategory             string `json:"job_category"`
		BasicQualifications     string `json:"basic_qualifications"`
		PreferredQualifications string `json:"preferred_qualifications"`
		Description             string `json:"description"`
		SalaryRange             string `json:"salary_range"`
	} `json:"jobs"`
}

// SearchURL builds the search.json request for q.
func (s *Scraper) SearchURL(q domain.Query) string {
	size := s.co.Size()
	v := util.FacetParams(q, s.co.Facets)

	// The site files two pseudo categories under other parameters.
	if cats := v["business_category[]"]; len(cats) > 0 {
		var keep []string
		for _, c := range cats {
			if c == "virtual-locations" {
				v.Add("location[]", c)
				continue
			}
			keep = append(keep, c)
		}
		if len(keep) == 0 {
			v.Del("business_category[]")
		} else {
			v["business_category[]"] = keep
		}
	}
	if q.Keyword != "" {
		v.Set("base_query", q.Keyword)
	}
	util.AddStatic(v, s.co.Params)
	v.Set("offset", fmt.Sprint(q.Offset(size)))
	v.Set("result_limit", fmt.Sprint(size))
	v.Set("radius", "24km")

	return fmt.Sprintf("%s/%s/search.json?%s", strings.TrimRight(s.co.BaseURL, "/"), s.co.Locale, util.EncodeQuery(v))
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	var res searchResponse
	if err := s.c.GetJSON(ctx, s.SearchURL(q), &res); err != nil {
		return domain.Page{}, fmt.Errorf("amazon search: %w", err)
	}

	jobs := make([]domain.Job, 0, len(res.Jobs))
	for _, r := range res.Jobs {
		jobs = append(jobs, domain.Job{
			Company:                 s.co.Name,
			ID:                      r.IDIcims,
			Title:                   util.CleanText(r.Title),
			PostedDate:              r.PostedDate,
			PostedAt:                util.ParsePosted(r.PostedDate),
			Location:                util.NormalizeLocation(util.FirstNonEmpty(r.NormalizedLocation, r.Location)),
			Department:              r.JobCategory,
			Description:             r.Description,
			BasicQualifications:     r.BasicQualifications,
			PreferredQualifications: r.PreferredQualifications,
			SalaryRange:             r.SalaryRange,
			URL:                     resolveJobURL(s.co.BaseURL, r.JobPath),
		})
	}
	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), res.Hits), nil
}

func resolveJobURL(base, path string) string {
	if path == "" {
		return ""
	}
	if _, err := url.Parse(path); err != nil {
		return ""
	}
	return util.ResolveURL(base, path)
}
