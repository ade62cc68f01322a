package util

import (
	"sort"
	"strings"
	"time"

	"joblawn-engine/internal/domain"
)

// Paginate returns the 1-based page of items, or nil past the end.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// HasNext reports whether another page exists. With an unknown total (0) a full page is
// taken to mean there may be more.
func HasNext(page, size, n, total int) bool {
	if page < 1 {
		page = 1
	}
	if total > 0 {
		return page*size < total
	}
	return size > 0 && n >= size
}

// MatchAny reports whether any selected value equals any candidate, case-insensitively.
// No selection matches everything.
func MatchAny(selected []string, candidates ...string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		for _, c := range candidates {
			if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(c)) {
				return true
			}
		}
	}
	return false
}

// ContainsFold reports whether keyword occurs in any of the texts.
func ContainsFold(keyword string, texts ...string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return true
	}
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), keyword) {
			return true
		}
	}
	return false
}

// FacetSet collects distinct values per facet for dropdowns.
type FacetSet map[string]map[string]struct{}

func (fs FacetSet) Add(facet string, vals ...string) {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if fs[facet] == nil {
			fs[facet] = map[string]struct{}{}
		}
		fs[facet][v] = struct{}{}
	}
}

// Sorted returns the collected values, or nil when nothing was added.
func (fs FacetSet) Sorted() map[string][]string {
	if len(fs) == 0 {
		return nil
	}
	out := make(map[string][]string, len(fs))
	for f, set := range fs {
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out[f] = vals
	}
	return out
}

// LocalPage slices already filtered jobs into a Page. fetchedAt is when the full list was
// read upstream, so the page ages with the list it came from.
func LocalPage(company string, jobs []domain.Job, q domain.Query, size int, facets FacetSet, fetchedAt time.Time) domain.Page {
	page := q.PageOrFirst()
	slice := Paginate(jobs, page, size)
	if slice == nil {
		slice = []domain.Job{}
	}
	return domain.Page{
		Company:   company,
		Jobs:      slice,
		Page:      page,
		PageSize:  size,
		Total:     len(jobs),
		HasNext:   HasNext(page, size, len(slice), len(jobs)),
		Facets:    facets.Sorted(),
		FetchedAt: fetchedAt.UTC(),
	}
}

// RemotePage wraps one upstream page into a Page.
func RemotePage(company string, jobs []domain.Job, q domain.Query, size, total int) domain.Page {
	if jobs == nil {
		jobs = []domain.Job{}
	}
	page := q.PageOrFirst()
	return domain.Page{
		Company:   company,
		Jobs:      jobs,
		Page:      page,
		PageSize:  size,
		Total:     total,
		HasNext:   HasNext(page, size, len(jobs), total),
		FetchedAt: time.Now().UTC(),
	}
}
