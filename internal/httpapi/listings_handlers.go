package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape"
)

// PageResponse is a listing page as the UI renders it.
type PageResponse struct {
	Company   string              `json:"company"`
	Jobs      []domain.Card       `json:"jobs"`
	Page      int                 `json:"page"`
	PageSize  int                 `json:"pageSize"`
	Total     int                 `json:"total,omitempty"`
	HasNext   bool                `json:"hasNext"`
	Facets    map[string][]string `json:"facets,omitempty"`
	FetchedAt time.Time           `json:"fetchedAt"`
	Cached    bool                `json:"cached"`
	Error     string              `json:"error,omitempty"`
}

func pageResponse(p domain.Page) PageResponse {
	return PageResponse{
		Company:   p.Company,
		Jobs:      p.Cards(),
		Page:      p.Page,
		PageSize:  p.PageSize,
		Total:     p.Total,
		HasNext:   p.HasNext,
		Facets:    p.Facets,
		FetchedAt: p.FetchedAt,
		Cached:    p.Cached,
		Error:     p.Error,
	}
}

type MultiResponse struct {
	Pages  []PageResponse    `json:"pages"`
	Errors map[string]string `json:"errors,omitempty"`
}

type ListingsHandler struct {
	Listings Listings
	CfgVal   *atomic.Value // config.Config
}

func (h ListingsHandler) pageSize() int {
	if v, ok := h.CfgVal.Load().(config.Config); ok && v.Fetch.PageSize > 0 {
		return v.Fetch.PageSize
	}
	return config.DefaultPageSize
}

func (h ListingsHandler) Companies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Listings.Companies(r.Context()))
}

// slugParam matches how config slugs are normalized.
func slugParam(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.PathValue("slug")))
}

// Jobs serves one page for one company. Upstream failures still answer 200 with the
// error text in the page so the listing can render it.
func (h ListingsHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	slug := slugParam(r)
	co, ok := h.Listings.Company(slug)
	if !ok {
		WriteError(w, r, http.StatusNotFound, "unknown_company", "unknown company "+slug)
		return
	}

	q := domain.ParseQuery(r.URL.Query(), co.Facets)
	p, err := h.Listings.Search(r.Context(), slug, q)
	switch {
	case errors.Is(err, scrape.ErrUnknownCompany):
		WriteError(w, r, http.StatusNotFound, "unknown_company", err.Error())
		return
	case err != nil:
		if r.Context().Err() != nil {
			return
		}
		log.Printf("[jobs] company=%q page=%d err=%v", slug, q.PageOrFirst(), err)
		p = scrape.DegradedPage(slug, q, h.pageSize(), err)
	}
	writeJSON(w, pageResponse(p))
}

// Multi runs one query across ?companies=a,b. Facets are read for every company listed.
func (h ListingsHandler) Multi(w http.ResponseWriter, r *http.Request) {
	slugs := domain.SplitList(strings.ToLower(r.URL.Query().Get("companies")))
	if len(slugs) == 0 {
		WriteError(w, r, http.StatusBadRequest, "missing_companies", "companies is required (comma separated slugs)")
		return
	}

	facetSet := map[string]bool{}
	for _, s := range slugs {
		if co, ok := h.Listings.Company(s); ok {
			for _, f := range co.Facets {
				facetSet[f] = true
			}
		}
	}
	facets := make([]string, 0, len(facetSet))
	for f := range facetSet {
		facets = append(facets, f)
	}
	sort.Strings(facets)

	res := h.Listings.SearchMany(r.Context(), slugs, domain.ParseQuery(r.URL.Query(), facets))
	out := MultiResponse{Pages: make([]PageResponse, 0, len(res.Pages)), Errors: res.Errors}
	for _, p := range res.Pages {
		out.Pages = append(out.Pages, pageResponse(p))
	}
	writeJSON(w, out)
}

func (h ListingsHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	slug := slugParam(r)
	n, err := h.Listings.Invalidate(r.Context(), slug)
	switch {
	case errors.Is(err, scrape.ErrUnknownCompany):
		WriteError(w, r, http.StatusNotFound, "unknown_company", err.Error())
		return
	case err != nil:
		WriteError(w, r, http.StatusInternalServerError, "cache_clear_failed", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "company": slug, "pages": n})
}
