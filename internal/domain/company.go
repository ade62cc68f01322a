package domain

import "time"

// Company describes one configured employer board as listed by the API.
type Company struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Vendor  string   `json:"vendor"`
	Domain  string   `json:"domain,omitempty"`
	Facets  []string `json:"facets"`
	LogoURL string   `json:"logoURL,omitempty"`
}

// Page is one page of listings for one company.
type Page struct {
	Company   string              `json:"company"`
	Jobs      []Job               `json:"jobs"`
	Page      int                 `json:"page"`
	PageSize  int                 `json:"pageSize"`
	Total     int                 `json:"total,omitempty"`
	HasNext   bool                `json:"hasNext"`
	Facets    map[string][]string `json:"facets,omitempty"`
	FetchedAt time.Time           `json:"fetchedAt"`
	Cached    bool                `json:"cached"`
	Error     string              `json:"error,omitempty"`
}

// Fetched is when the upstream data behind the page was read.
func (p Page) Fetched() time.Time { return p.FetchedAt }

func (p Page) Cards() []Card {
	out := make([]Card, 0, len(p.Jobs))
	for _, j := range p.Jobs {
		out = append(out, j.Card())
	}
	return out
}
