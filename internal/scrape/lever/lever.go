package lever

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

const (
	defaultAPIBase = "https://api.lever.co"
	maxCursorPages = 100
)

// Company is either a public Lever site (api.lever.co/v0/postings/<Site>) or a company proxy
// Endpoint that pages with an opaque cursor (Palantir). Facets map onto the posting
// categories: team, commitment, location, department.
type Company struct {
	types.Source
	Site     string
	Endpoint string
	APIBase  string
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

func (s *Scraper) Name() string { return "lever" }

type list struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

type posting struct {
	ID              string          `json:"id"`
	Text            string          `json:"text"`
	HostedURL       string          `json:"hostedUrl"`
	CreatedAt       util.FlexString `json:"createdAt"`
	UpdatedAt       util.FlexString `json:"updatedAt"`
	Description     string          `json:"description"`
	Additional      string          `json:"additional"`
	AdditionalPlain string          `json:"additionalPlain"`
	Lists           []list          `json:"lists"`
	Categories      struct {
		Commitment   string   `json:"commitment"`
		Location     string   `json:"location"`
		Team         string   `json:"team"`
		Department   string   `json:"department"`
		AllLocations []string `json:"allLocations"`
	} `json:"categories"`
	SalaryRange *struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"salaryRange"`

	// proxy shape
	Content *struct {
		DescriptionHTML string `json:"descriptionHtml"`
		Lists           []list `json:"lists"`
		ClosingHTML     string `json:"closingHtml"`
	} `json:"content"`
	URLs *struct {
		Show string `json:"show"`
	} `json:"urls"`
}

type cursorResponse struct {
	Data    []posting `json:"data"`
	HasNext bool      `json:"hasNext"`
	Next    string    `json:"next"`
}

func (p posting) values(field string) []string {
	switch field {
	case "team":
		return []string{p.Categories.Team}
	case "commitment":
		return []string{p.Categories.Commitment}
	case "department":
		return []string{p.Categories.Department}
	case "location":
		if len(p.Categories.AllLocations) > 0 {
			return p.Categories.AllLocations
		}
		return []string{p.Categories.Location}
	}
	return nil
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	var (
		all       []posting
		fetchedAt time.Time
		err       error
	)
	if s.co.Endpoint != "" {
		all, fetchedAt, err = s.memo.Get(ctx, "cursor", s.loadCursor)
	} else {
		params := url.Values{}
		for facet, field := range s.co.Facets {
			for _, v := range q.Values(facet) {
				params.Add(field, v)
			}
		}
		params.Set("mode", "json")
		u := fmt.Sprintf("%s/v0/postings/%s?%s", s.co.APIBase, url.PathEscape(s.co.Site), params.Encode())
		all, fetchedAt, err = s.memo.Get(ctx, u, func(ctx context.Context) ([]posting, error) {
			var ps []posting
			if err := s.c.GetJSON(ctx, u, &ps); err != nil {
				return nil, fmt.Errorf("lever postings: %w", err)
			}
			return ps, nil
		})
	}
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
	return util.ContainsFold(q.Keyword, p.Text)
}

// loadCursor walks the proxy's cursor until hasNext is false.
func (s *Scraper) loadCursor(ctx context.Context) ([]posting, error) {
	var all []posting
	next := ""
	for i := 0; i < maxCursorPages; i++ {
		u := s.co.Endpoint + "?state=published"
		if next != "" {
			u += "&offset=" + url.QueryEscape(next)
		}
		var res cursorResponse
		if err := s.c.GetJSON(ctx, u, &res); err != nil {
			return nil, fmt.Errorf("lever cursor page %d: %w", i+1, err)
		}
		all = append(all, res.Data...)
		if !res.HasNext || res.Next == "" || res.Next == next {
			return all, nil
		}
		next = res.Next
	}
	return all, nil
}

func (s *Scraper) toJob(p posting) domain.Job {
	j := domain.Job{
		Company:     s.co.Name,
		ID:          p.ID,
		Title:       util.CleanText(p.Text),
		Location:    util.NormalizeLocation(p.Categories.Location),
		Department:  util.FirstNonEmpty(p.Categories.Team, p.Categories.Department),
		Description: util.JoinNonEmpty("\n", p.Description, p.Additional),
		URL:         p.HostedURL,
	}
	lists := p.Lists
	if p.Content != nil {
		j.Description = util.JoinNonEmpty("\n", p.Content.DescriptionHTML, p.Content.ClosingHTML)
		lists = p.Content.Lists
	}
	if p.URLs != nil && j.URL == "" {
		j.URL = p.URLs.Show
	}

	for _, l := range lists {
		title := strings.ToLower(l.Text)
		switch {
		case strings.Contains(title, "qualif") || strings.Contains(title, "require") || strings.Contains(title, "looking for"):
			j.BasicQualifications = util.JoinNonEmpty("\n", j.BasicQualifications, l.Content)
		case strings.Contains(title, "bonus") || strings.Contains(title, "nice to have") || strings.Contains(title, "preferred"):
			j.PreferredQualifications = util.JoinNonEmpty("\n", j.PreferredQualifications, l.Content)
		default:
			j.Responsibilities = util.JoinNonEmpty("\n", j.Responsibilities, l.Content)
		}
	}

	for _, loc := range p.Categories.AllLocations {
		if !strings.EqualFold(loc, p.Categories.Location) {
			j.SecondaryLocations = append(j.SecondaryLocations, loc)
		}
	}
	if j.Location == "" && len(j.SecondaryLocations) > 0 {
		j.Location, j.SecondaryLocations = j.SecondaryLocations[0], j.SecondaryLocations[1:]
	}

	if t := util.ParsePosted(util.FirstNonEmpty(p.CreatedAt.String(), p.UpdatedAt.String())); t != nil {
		j.PostedAt = t
		j.PostedDate = t.Format(time.RFC3339)
	}
	if r := p.SalaryRange; r != nil && (r.Min > 0 || r.Max > 0) {
		j.SalaryRange = strings.TrimSpace(fmt.Sprintf("%s %.0f - %.0f", r.Currency, r.Min, r.Max))
	}
	return j
}

func (s *Scraper) Forget() { s.memo.Forget() }
