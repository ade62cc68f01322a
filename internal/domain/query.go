package domain

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query is a normalized listing request: facet selections, keyword and 1-based page.
type Query struct {
	Filters map[string][]string `json:"filters,omitempty"`
	Keyword string              `json:"keyword,omitempty"`
	Page    int                 `json:"page"`
}

// ParseQuery reads keyword, page and the given facets from a query string.
// Facet values are comma separated; repeated parameters are merged.
func ParseQuery(v url.Values, facets []string) Query {
	q := Query{
		Keyword: strings.TrimSpace(v.Get("keyword")),
		Page:    parsePage(v.Get("page")),
	}
	for _, f := range facets {
		var vals []string
		for _, raw := range v[f] {
			vals = append(vals, SplitList(raw)...)
		}
		if len(vals) > 0 {
			if q.Filters == nil {
				q.Filters = map[string][]string{}
			}
			q.Filters[f] = vals
		}
	}
	return q
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// First returns the first selected value of a facet, or "".
func (q Query) First(facet string) string {
	if vs := q.Filters[facet]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (q Query) Values(facet string) []string {
	return q.Filters[facet]
}

// PageOrFirst guards against zero-value queries built in code.
func (q Query) PageOrFirst() int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

// Offset is the 0-based index of the first item on the page.
func (q Query) Offset(size int) int {
	return (q.PageOrFirst() - 1) * size
}

// WithPage returns a copy pointing at another page.
func (q Query) WithPage(p int) Query {
	q.Page = p
	return q
}

// CacheKey is the canonical JSON of company, filters, keyword and page.
func (q Query) CacheKey(company string) string {
	filters := make(map[string][]string, len(q.Filters))
	for k, vs := range q.Filters {
		if len(vs) == 0 {
			continue
		}
		cp := append([]string(nil), vs...)
		sort.Strings(cp)
		filters[k] = cp
	}
	key := struct {
		Company string              `json:"company"`
		Filters map[string][]string `json:"filters"`
		Keyword string              `json:"keyword"`
		Page    int                 `json:"page"`
	}{company, filters, strings.ToLower(q.Keyword), q.PageOrFirst()}
	b, _ := json.Marshal(key)
	return string(b)
}
