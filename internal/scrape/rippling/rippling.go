package rippling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const (
	defaultBase = "https://www.rippling.com"
	rolesPath   = "/en-GB/careers/open-roles"
)

// Company reads Rippling's own careers page, a Next.js site whose data route is keyed by build id.
type Company struct {
	types.Source
	BaseURL string
}

type Scraper struct {
	co   Company
	c    *util.Client
	memo *util.ListMemo[posting]
}

func New(co Company, c *util.Client, memoTTL time.Duration) *Scraper {
	if co.BaseURL == "" {
		co.BaseURL = defaultBase
	}
	co.BaseURL = strings.TrimRight(co.BaseURL, "/")
	return &Scraper{co: co, c: c, memo: util.NewListMemo[posting](memoTTL)}
}

func (s *Scraper) Name() string { return "rippling" }

type labeled struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type posting struct {
	UUID                    string  `json:"uuid"`
	Name                    string  `json:"name"`
	URL                     string  `json:"url"`
	WorkLocation            labeled `json:"workLocation"`
	Department              labeled `json:"department"`
	Description             string  `json:"description"`
	BasicQualifications     string  `json:"basic_qualifications"`
	PreferredQualifications string  `json:"preferred_qualifications"`
}

func (p posting) values(field string) []string {
	switch field {
	case "location":
		return []string{p.WorkLocation.Label, p.WorkLocation.ID}
	case "department":
		return []string{p.Department.Label, p.Department.ID}
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
			// Labels only; ids are accepted as filters but are not shown.
			if vals := p.values(field); len(vals) > 0 {
				facets.Add(facet, vals[0])
			}
		}
		ok := util.ContainsFold(q.Keyword, p.Name)
		for facet, field := range s.co.Facets {
			ok = ok && util.MatchAny(q.Values(facet), p.values(field)...)
		}
		if ok {
			matched = append(matched, domain.Job{
				Company:                 s.co.Name,
				ID:                      p.UUID,
				Title:                   util.CleanText(p.Name),
				Location:                util.NormalizeLocation(p.WorkLocation.Label),
				Department:              p.Department.Label,
				Description:             p.Description,
				BasicQualifications:     p.BasicQualifications,
				PreferredQualifications: p.PreferredQualifications,
				URL:                     p.URL,
			})
		}
	}
	return util.LocalPage(s.co.Slug, matched, q, s.co.Size(), facets, fetchedAt), nil
}

var buildIDRe = regexp.MustCompile(`window\.__BUILD_ID__\s*=\s*['"]([^'"]+)['"]`)

// BuildID reads the current Next.js build id off the open-roles page.
func (s *Scraper) BuildID(ctx context.Context) (string, error) {
	page, err := s.c.GetBytes(ctx, s.co.BaseURL+rolesPath, http.Header{"Accept": {"text/html"}})
	if err != nil {
		return "", fmt.Errorf("rippling roles page: %w", err)
	}
	if id := util.ScriptMatch(string(page), buildIDRe); id != "" {
		return id, nil
	}
	if raw := util.ScriptByID(string(page), "__NEXT_DATA__"); raw != "" {
		var next struct {
			BuildID string `json:"buildId"`
		}
		if err := json.Unmarshal([]byte(raw), &next); err == nil && next.BuildID != "" {
			return next.BuildID, nil
		}
	}
	return "", errors.New("rippling: build id not found")
}

func (s *Scraper) loadAll(ctx context.Context) ([]posting, error) {
	id, err := s.BuildID(ctx)
	if err != nil {
		return nil, err
	}
	var res struct {
		PageProps struct {
			Jobs []posting `json:"jobs"`
		} `json:"pageProps"`
	}
	u := fmt.Sprintf("%s/_next/data/%s%s.json", s.co.BaseURL, id, rolesPath)
	if err := s.c.GetJSON(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("rippling jobs: %w", err)
	}
	return res.PageProps.Jobs, nil
}

func (s *Scraper) Forget() { s.memo.Forget() }
