package jibe

import (
	"context"
	"fmt"
	"strings"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

// Company is a Jibe (iCIMS Attract) career site serving /api/jobs.
type Company struct {
	types.Source
	Host    string
	APIBase string
}

type Scraper struct {
	co Company
	c  *util.Client
}

func New(co Company, c *util.Client) *Scraper {
	if co.APIBase == "" {
		co.APIBase = "https://" + co.Host
	}
	co.APIBase = strings.TrimRight(co.APIBase, "/")
	return &Scraper{co: co, c: c}
}

func (s *Scraper) Name() string { return "jibe" }

type jobData struct {
	Slug             string           `json:"slug"`
	ReqID            util.FlexString  `json:"req_id"`
	Title            string           `json:"title"`
	PostedDate       string           `json:"posted_date"`
	LocationName     string           `json:"location_name"`
	FullLocation     string           `json:"full_location"`
	Description      string           `json:"description"`
	Qualifications   string           `json:"qualifications"`
	Responsibilities string           `json:"responsibilities"`
	Category         util.FlexStrings `json:"category"`
	Tags2            util.FlexStrings `json:"tags2"`
	Tags3            util.FlexStrings `json:"tags3"`
	MetaData         struct {
		CanonicalURL string `json:"canonical_url"`
	} `json:"meta_data"`
}

type listResponse struct {
	TotalCount int `json:"totalCount"`
	Jobs       []struct {
		Data jobData `json:"data"`
	} `json:"jobs"`
}

func (s *Scraper) ListURL(q domain.Query) string {
	v := util.FacetParams(q, s.co.Facets)
	if q.Keyword != "" {
		v.Set("keywords", q.Keyword)
	}
	util.AddStatic(v, s.co.Params)
	v.Set("page", fmt.Sprint(q.PageOrFirst()))
	v.Set("limit", fmt.Sprint(s.co.Size()))
	v.Set("sortBy", "relevance")
	v.Set("descending", "false")
	v.Set("internal", "false")
	return s.co.APIBase + "/api/jobs?" + util.EncodeQuery(v)
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	var res listResponse
	if err := s.c.GetJSON(ctx, s.ListURL(q), &res); err != nil {
		return domain.Page{}, fmt.Errorf("jibe jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(res.Jobs))
	for _, r := range res.Jobs {
		d := r.Data
		j := domain.Job{
			Company:             s.co.Name,
			ID:                  d.ReqID.String(),
			Title:               util.CleanText(d.Title),
			PostedDate:          d.PostedDate,
			PostedAt:            util.ParsePosted(d.PostedDate),
			Location:            util.NormalizeLocation(util.FirstNonEmpty(d.FullLocation, d.LocationName)),
			Department:          d.Category.First(),
			Description:         d.Description,
			BasicQualifications: d.Qualifications,
			Responsibilities:    d.Responsibilities,
			URL:                 util.FirstNonEmpty(d.MetaData.CanonicalURL, s.jobURL(d)),
		}
		if lo, hi := d.Tags2.First(), d.Tags3.First(); lo != "" || hi != "" {
			j.SalaryRange = util.FirstNonEmpty(lo, "N/A") + " - " + util.FirstNonEmpty(hi, "N/A")
		}
		jobs = append(jobs, j)
	}
	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), res.TotalCount), nil
}

func (s *Scraper) jobURL(d jobData) string {
	id := util.FirstNonEmpty(d.Slug, d.ReqID.String())
	if id == "" {
		return ""
	}
	return s.co.APIBase + "/jobs/" + id
}
