package deshaw

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const (
	defaultAPIBase = "https://www.apply.deshaw.com"
	careersUS      = "https://www.deshaw.com/careers/"
	careersIndia   = "https://www.deshawindia.com/careers/"
)

var indiaOffices = map[string]bool{"gurugram": true, "hyderabad": true, "bengaluru": true}

// Company lists D. E. Shaw application pages (1 and 2) merged. Facets filter locally on
// location, department and jobSeekerCategory.
type Company struct {
	types.Source
	Pages   []string
	APIBase string
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

func (s *Scraper) Name() string { return "deshaw" }

type posting struct {
	ID             util.FlexString `json:"id"`
	DisplayName    string          `json:"displayName"`
	JobURL         string          `json:"jobUrl"`
	JobHeaders     []string        `json:"jobHeaders"`
	JobDescription struct {
		WebsiteDescription       string `json:"websiteDescription"`
		Responsibilities         string `json:"responsibilities"`
		PeopleWeAreLookingForStr string `json:"peopleWeAreLookingForStr"`
	} `json:"jobDescription"`
	JobMetadata struct {
		ActiveOnWebsite bool `json:"activeOnWebsite"`
		JobLocations    []struct {
			Name string `json:"name"`
		} `json:"jobLocations"`
		JobSeekerCategories []string `json:"jobSeekerCategories"`
	} `json:"jobMetadata"`
}

func (p posting) locations() []string {
	out := make([]string, 0, len(p.JobMetadata.JobLocations))
	for _, l := range p.JobMetadata.JobLocations {
		out = append(out, l.Name)
	}
	return out
}

func (p posting) department() string {
	if len(p.JobHeaders) > 0 {
		return p.JobHeaders[0]
	}
	return ""
}

func (p posting) values(field string) []string {
	switch field {
	case "location":
		return p.locations()
	case "department":
		return []string{p.department()}
	case "jobSeekerCategory":
		return p.JobMetadata.JobSeekerCategories
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
		ok := util.ContainsFold(q.Keyword, p.DisplayName)
		for facet, field := range s.co.Facets {
			ok = ok && util.MatchAny(q.Values(facet), p.values(field)...)
		}
		if ok {
			matched = append(matched, s.toJob(p))
		}
	}
	return util.LocalPage(s.co.Slug, matched, q, s.co.Size(), facets, fetchedAt), nil
}

func (s *Scraper) loadAll(ctx context.Context) ([]posting, error) {
	var out []posting
	seen := map[string]bool{}
	for _, page := range s.co.Pages {
		u := fmt.Sprintf("%s/services/jobs/getJobsActiveOnApplicationPages/%s", s.co.APIBase, url.PathEscape(page))
		var ps []posting
		if err := s.c.GetJSON(ctx, u, &ps); err != nil {
			// Both pages make up one listing.
			return nil, fmt.Errorf("deshaw page %s: %w", page, err)
		}
		for _, p := range ps {
			key := p.ID.String() + p.JobURL
			if !p.JobMetadata.ActiveOnWebsite || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
		}
	}
	log.WithFields(log.Fields{"company": s.co.Slug, "active": len(out)}).Debug("deshaw list loaded")
	return out, nil
}

func (s *Scraper) toJob(p posting) domain.Job {
	j := domain.Job{
		Company:             s.co.Name,
		ID:                  p.ID.String(),
		Title:               util.CleanText(p.DisplayName),
		Department:          p.department(),
		Description:         p.JobDescription.WebsiteDescription,
		BasicQualifications: p.JobDescription.PeopleWeAreLookingForStr,
		Responsibilities:    p.JobDescription.Responsibilities,
	}
	locs := p.locations()
	if len(locs) > 0 {
		j.Location = locs[0]
		j.SecondaryLocations = locs[1:]
	}

	base := careersUS
	for _, l := range locs {
		if indiaOffices[strings.ToLower(l)] {
			base = careersIndia
			break
		}
	}
	if p.JobURL != "" {
		j.URL = base + strings.TrimLeft(strings.ToLower(p.JobURL), "/")
	}
	return j
}

func (s *Scraper) Forget() { s.memo.Forget() }
