package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/events"
	"joblawn-engine/internal/scrape"
	"joblawn-engine/internal/scrape/types"
)

// Listings is what the handlers need from scrape.Service.
type Listings interface {
	Search(ctx context.Context, slug string, q domain.Query) (domain.Page, error)
	SearchMany(ctx context.Context, slugs []string, q domain.Query) scrape.MultiResult
	Companies(ctx context.Context) []domain.Company
	Company(slug string) (domain.Company, bool)
	Invalidate(ctx context.Context, slug string) (int, error)
	Reload(cfg config.Config)
	CacheLen() int
}

type Warmer interface {
	RunNow(ctx context.Context) error
	Status() types.WarmStatus
}

type Deps struct {
	DB  *sql.DB
	Hub *events.Hub

	CfgVal *atomic.Value // stores config.Config

	Listings Listings
	Warm     Warmer

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
