package scrape

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

// Registry holds one board per enabled company, in config order.
type Registry struct {
	boards    map[string]types.Board
	companies []config.Company
}

// forgetter is implemented by boards that keep a full upstream list between pages.
type forgetter interface {
	Forget()
}

// NewRegistry builds every enabled company. A company whose adapter cannot be built is
// logged and left out, so one bad entry does not take the engine down.
func NewRegistry(cfg config.Config, client *util.Client) *Registry {
	r := &Registry{boards: map[string]types.Board{}}
	for _, co := range cfg.Companies {
		if co.Disabled {
			continue
		}
		b, err := MapBoard(co, cfg, client)
		if err != nil {
			log.Printf("[registry] company=%q vendor=%q skipped: %v", co.Slug, co.Vendor, err)
			continue
		}
		r.boards[co.Slug] = b
		r.companies = append(r.companies, co)
	}
	log.WithField("companies", len(r.companies)).Info("registry built")
	return r
}

func (r *Registry) Board(slug string) (types.Board, config.Company, bool) {
	b, ok := r.boards[slug]
	if !ok {
		return nil, config.Company{}, false
	}
	for _, co := range r.companies {
		if co.Slug == slug {
			return b, co, true
		}
	}
	return nil, config.Company{}, false
}

// Companies describes the configured companies for listing. LogoURL is filled by the service.
func (r *Registry) Companies() []domain.Company {
	out := make([]domain.Company, 0, len(r.companies))
	for _, co := range r.companies {
		facets := make([]string, 0, len(co.Facets))
		for f := range co.Facets {
			facets = append(facets, f)
		}
		sort.Strings(facets)
		out = append(out, domain.Company{
			Slug:   co.Slug,
			Name:   util.FirstNonEmpty(co.Name, co.Slug),
			Vendor: co.Vendor,
			Domain: co.Domain,
			Facets: facets,
		})
	}
	return out
}

// Forget drops a company's in-process list memo, if its board keeps one.
func (r *Registry) Forget(slug string) {
	if f, ok := r.boards[slug].(forgetter); ok {
		f.Forget()
	}
}

func (r *Registry) Len() int { return len(r.companies) }
