package eightfold

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

// Company is one Eightfold-hosted career site (aexp.eightfold.ai, jobs.juniper.net, ...).
type Company struct {
	types.Source
	Host    string // jobs.juniper.net
	Domain  string // sent as ?domain=
	APIBase string // defaults to https://{Host}
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

func (s *Scraper) Name() string { return "eightfold" }

type position struct {
	ID                   util.FlexString `json:"id"`
	Name                 string          `json:"name"`
	DisplayJobID         util.FlexString `json:"display_job_id"`
	TCreate              int64           `json:"t_create"`
	Locations            []string        `json:"locations"`
	Location             string          `json:"location"`
	Department           string          `json:"department"`
	CanonicalPositionURL string          `json:"canonicalPositionUrl"`
}

type listResponse struct {
	Count     int        `json:"count"`
	Positions []position `json:"positions"`
}

type detailResponse struct {
	JobDescription string `json:"job_description"`
	CustomJD       struct {
		DataFields map[string]util.FlexStrings `json:"data_fields"`
	} `json:"custom_JD"`
}

func (s *Scraper) ListURL(q domain.Query) string {
	size := s.co.Size()
	v := util.FacetParams(q, s.co.Facets)
	if q.Keyword != "" {
		v.Set("query", q.Keyword)
	}
	util.AddStatic(v, s.co.Params)
	v.Set("domain", s.co.Domain)
	v.Set("start", fmt.Sprint(q.Offset(size)))
	v.Set("num", fmt.Sprint(size))
	return s.co.APIBase + "/api/apply/v2/jobs?" + v.Encode()
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	var res listResponse
	if err := s.c.GetJSON(ctx, s.ListURL(q), &res); err != nil {
		return domain.Page{}, fmt.Errorf("eightfold list: %w", err)
	}

	jobs := make([]domain.Job, len(res.Positions))
	for i, p := range res.Positions {
		locs := p.Locations
		if len(locs) == 0 && p.Location != "" {
			locs = []string{p.Location}
		}
		j := domain.Job{
			Company:    s.co.Name,
			ID:         util.FirstNonEmpty(p.DisplayJobID.String(), p.ID.String()),
			Title:      util.CleanText(p.Name),
			Department: p.Department,
			URL:        util.FirstNonEmpty(p.CanonicalPositionURL, s.co.APIBase+"/careers?pid="+p.ID.String()),
		}
		if len(locs) > 0 {
			j.Location = util.NormalizeLocation(locs[0])
			j.SecondaryLocations = locs[1:]
		}
		if t := util.EpochTime(p.TCreate); t != nil {
			j.PostedAt = t
			j.PostedDate = t.Format(time.RFC3339)
		}
		jobs[i] = j
	}

	util.EachLimit(ctx, "ats:eightfold", len(jobs), s.co.Limit(), func(ctx context.Context, i int) error {
		return s.hydrate(ctx, res.Positions[i].ID.String(), &jobs[i])
	})

	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), res.Count), nil
}

func (s *Scraper) hydrate(ctx context.Context, id string, j *domain.Job) error {
	u := fmt.Sprintf("%s/api/apply/v2/jobs/%s?domain=%s", s.co.APIBase, url.PathEscape(id), url.QueryEscape(s.co.Domain))
	var d detailResponse
	if err := s.c.GetJSON(ctx, u, &d); err != nil {
		return fmt.Errorf("eightfold detail %s: %w", id, err)
	}
	j.Description = d.JobDescription

	// Tenants name the field differently (posting_date at Netflix, posteddate at Morgan Stanley).
	for _, k := range []string{"posting_date", "posteddate", "posted_date"} {
		if v := d.CustomJD.DataFields[k].First(); v != "" {
			j.PostedDate = v
			if t := util.ParsePosted(v); t != nil {
				j.PostedAt = t
			}
			break
		}
	}
	return nil
}
