package greenhouse

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

const defaultAPIBase = "https://boards-api.greenhouse.io"

// Company is one employer with one or more Greenhouse boards (SpaceX lists two).
// Facets map query facets to "location", "department", "office" or "meta:<field name>".
type Company struct {
	types.Source
	Boards  []string
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

func (s *Scraper) Name() string { return "greenhouse" }

type named struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type posting struct {
	ID             util.FlexString `json:"id"`
	Title          string          `json:"title"`
	AbsoluteURL    string          `json:"absolute_url"`
	UpdatedAt      string          `json:"updated_at"`
	FirstPublished string          `json:"first_published"`
	Content        string          `json:"content"`
	Location       named           `json:"location"`
	Offices        []named         `json:"offices"`
	Departments    []named         `json:"departments"`
	Metadata       []struct {
		Name  string           `json:"name"`
		Value util.FlexStrings `json:"value"`
	} `json:"metadata"`
}

type boardResponse struct {
	Jobs []posting `json:"jobs"`
}

// values returns what a posting holds for an upstream field name.
func (p posting) values(field string) []string {
	switch {
	case field == "location":
		return []string{p.Location.Name}
	case field == "department":
		out := make([]string, 0, len(p.Departments))
		for _, d := range p.Departments {
			out = append(out, d.Name)
		}
		return out
	case field == "office":
		out := make([]string, 0, len(p.Offices))
		for _, o := range p.Offices {
			out = append(out, o.Name)
		}
		return out
	case strings.HasPrefix(field, "meta:"):
		name := strings.TrimPrefix(field, "meta:")
		for _, m := range p.Metadata {
			if strings.EqualFold(m.Name, name) {
				return m.Value
			}
		}
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
		if !s.matches(p, q) {
			continue
		}
		matched = append(matched, s.toJob(p))
	}
	return util.LocalPage(s.co.Slug, matched, q, s.co.Size(), facets, fetchedAt), nil
}

func (s *Scraper) matches(p posting, q domain.Query) bool {
	for facet, field := range s.co.Facets {
		if !util.MatchAny(q.Values(facet), p.values(field)...) {
			return false
		}
	}
	return util.ContainsFold(q.Keyword, p.Title)
}

func (s *Scraper) loadAll(ctx context.Context) ([]posting, error) {
	var (
		all     []posting
		seen    = map[string]bool{}
		lastErr error
		okCount int
	)
	for _, board := range s.co.Boards {
		u := fmt.Sprintf("%s/v1/boards/%s/jobs?content=true", s.co.APIBase, url.PathEscape(board))
		var res boardResponse
		if err := s.c.GetJSON(ctx, u, &res); err != nil {
			lastErr = fmt.Errorf("greenhouse board %s: %w", board, err)
			log.Printf("[ats:greenhouse] company=%q board=%q err=%v", s.co.Slug, board, err)
			continue
		}
		okCount++
		for _, p := range res.Jobs {
			if p.ID == "" || seen[string(p.ID)] {
				continue
			}
			seen[string(p.ID)] = true
			all = append(all, p)
		}
	}
	if okCount == 0 && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

func (s *Scraper) toJob(p posting) domain.Job {
	posted := util.FirstNonEmpty(p.FirstPublished, p.UpdatedAt)
	j := domain.Job{
		Company:     s.co.Name,
		ID:          string(p.ID),
		Title:       util.CleanText(p.Title),
		PostedDate:  posted,
		PostedAt:    util.ParsePosted(posted),
		Location:    util.NormalizeLocation(p.Location.Name),
		Description: util.UnescapeHTML(p.Content),
		URL:         p.AbsoluteURL,
	}
	if deps := p.values("department"); len(deps) > 0 {
		j.Department = deps[0]
	}
	for _, o := range p.Offices {
		if o.Name != "" && !strings.EqualFold(o.Name, p.Location.Name) {
			j.SecondaryLocations = append(j.SecondaryLocations, o.Name)
		}
	}
	return j
}

// Forget drops the memoized board list.
func (s *Scraper) Forget() { s.memo.Forget() }
