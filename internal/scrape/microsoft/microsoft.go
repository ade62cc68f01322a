package microsoft

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const (
	defaultAPIBase = "https://gcsservices.careers.microsoft.com"
	jobPageBase    = "https://jobs.careers.microsoft.com/global/en/job/"
)

type Company struct {
	types.Source
	APIBase string
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

func (s *Scraper) Name() string { return "microsoft" }

type searchResponse struct {
	OperationResult struct {
		Result struct {
			TotalJobs int `json:"totalJobs"`
			Jobs      []struct {
				JobID       util.FlexString `json:"jobId"`
				Title       string          `json:"title"`
				PostingDate string          `json:"postingDate"`
				Properties  struct {
					Locations  []string `json:"locations"`
					Profession string   `json:"profession"`
					Discipline string   `json:"discipline"`
				} `json:"properties"`
			} `json:"jobs"`
		} `json:"result"`
	} `json:"operationResult"`
}

type detailResponse struct {
	OperationResult struct {
		Result struct {
			Description      string `json:"description"`
			Qualifications   string `json:"qualifications"`
			Responsibilities string `json:"responsibilities"`
		} `json:"result"`
	} `json:"operationResult"`
}

func (s *Scraper) SearchURL(q domain.Query) string {
	v := util.FacetParams(q, s.co.Facets)
	if q.Keyword != "" {
		v.Set("q", q.Keyword)
	}
	util.AddStatic(v, s.co.Params)
	v.Set("pg", fmt.Sprint(q.PageOrFirst()))
	v.Set("l", "en_us")
	v.Set("pgSz", fmt.Sprint(s.co.Size()))
	v.Set("o", "Relevance")
	v.Set("flt", "true")
	return s.co.APIBase + "/search/api/v1/search?" + util.EncodeQuery(v)
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	var res searchResponse
	if err := s.c.GetJSON(ctx, s.SearchURL(q), &res); err != nil {
		return domain.Page{}, fmt.Errorf("microsoft search: %w", err)
	}

	rows := res.OperationResult.Result.Jobs
	jobs := make([]domain.Job, len(rows))
	for i, r := range rows {
		j := domain.Job{
			Company:    s.co.Name,
			ID:         r.JobID.String(),
			Title:      util.CleanText(r.Title),
			PostedDate: r.PostingDate,
			PostedAt:   util.ParsePosted(r.PostingDate),
			Department: util.FirstNonEmpty(r.Properties.Profession, r.Properties.Discipline),
			URL:        jobPageBase + url.PathEscape(r.JobID.String()),
		}
		if locs := r.Properties.Locations; len(locs) > 0 {
			j.Location = locs[0]
			j.SecondaryLocations = locs[1:]
		}
		jobs[i] = j
	}

	util.EachLimit(ctx, "ats:microsoft", len(jobs), s.co.Limit(), func(ctx context.Context, i int) error {
		var d detailResponse
		u := fmt.Sprintf("%s/search/api/v1/job/%s?lang=en_us", s.co.APIBase, url.PathEscape(jobs[i].ID))
		if err := s.c.GetJSON(ctx, u, &d); err != nil {
			return fmt.Errorf("microsoft job %s: %w", jobs[i].ID, err)
		}
		r := d.OperationResult.Result
		jobs[i].Description = r.Description
		jobs[i].BasicQualifications = r.Qualifications
		jobs[i].Responsibilities = r.Responsibilities
		return nil
	})

	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), res.OperationResult.Result.TotalJobs), nil
}
