package thoughtworks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const (
	defaultBase = "https://www.thoughtworks.com"
	jobBase     = "https://www.thoughtworks.com/en-in/careers/jobs/"
)

type Company struct {
	types.Source
	APIBase string
}

type Scraper struct {
	co   Company
	c    *util.Client
	memo *util.ListMemo[job]
}

func New(co Company, c *util.Client, memoTTL time.Duration) *Scraper {
	if co.APIBase == "" {
		co.APIBase = defaultBase
	}
	co.APIBase = strings.TrimRight(co.APIBase, "/")
	return &Scraper{co: co, c: c, memo: util.NewListMemo[job](memoTTL)}
}

func (s *Scraper) Name() string { return "thoughtworks" }

type job struct {
	ID             util.FlexString `json:"sourceSystemId"`
	Name           string          `json:"name"`
	Role           string          `json:"role"`
	Location       string          `json:"location"`
	Country        string          `json:"country"`
	JobFunctions   []string        `json:"jobFunctions"`
	RemoteEligible bool            `json:"remoteEligible"`
	UpdatedAt      string          `json:"updatedAt"`
}

func (j job) field(name string) []string {
	switch name {
	case "country":
		return []string{j.Country}
	case "jobFunction":
		return j.JobFunctions
	case "remote":
		return []string{strconv.FormatBool(j.RemoteEligible)}
	}
	return nil
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	all, fetchedAt, err := s.memo.Get(ctx, s.co.Slug, func(ctx context.Context) ([]job, error) {
		var res struct {
			Jobs []job `json:"jobs"`
		}
		if err := s.c.GetJSON(ctx, s.co.APIBase+"/rest/careers/jobs", &res); err != nil {
			return nil, fmt.Errorf("thoughtworks jobs: %w", err)
		}
		return res.Jobs, nil
	})
	if err != nil {
		return domain.Page{}, err
	}

	facets := util.FacetSet{}
	var matched []domain.Job
	for _, j := range all {
		ok := util.ContainsFold(q.Keyword, j.Name, j.Role)
		for facet, field := range s.co.Facets {
			vals := j.field(field)
			facets.Add(facet, vals...)
			ok = ok && util.MatchAny(remoteAliases(field, q.Values(facet)), vals...)
		}
		if !ok {
			continue
		}
		id := string(j.ID)
		matched = append(matched, domain.Job{
			Company:    s.co.Name,
			ID:         id,
			Title:      util.CleanText(j.Name),
			PostedDate: j.UpdatedAt,
			PostedAt:   util.ParsePosted(j.UpdatedAt),
			Location:   util.NormalizeLocation(util.FirstNonEmpty(j.Location, "Remote")),
			Department: strings.Join(j.JobFunctions, ", "),
			URL:        jobBase + id,
		})
	}
	return util.LocalPage(s.co.Slug, matched, q, s.co.Size(), facets, fetchedAt), nil
}

// remoteAliases lets the remote facet take yes/no as well as true/false.
func remoteAliases(field string, sel []string) []string {
	if field != "remote" {
		return sel
	}
	out := make([]string, 0, len(sel))
	for _, v := range sel {
		switch strings.ToLower(v) {
		case "yes", "y", "1":
			v = "true"
		case "no", "n", "0":
			v = "false"
		}
		out = append(out, v)
	}
	return out
}

func (s *Scraper) Forget() { s.memo.Forget() }
