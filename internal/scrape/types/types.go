package types

import (
	"context"

	"joblawn-engine/internal/domain"
)

// Board lists one employer's jobs. Implementations are per vendor family.
type Board interface {
	Name() string
	Fetch(ctx context.Context, q domain.Query) (domain.Page, error)
}

// Source is the configuration every vendor adapter shares.
type Source struct {
	Slug   string
	Name   string
	Facets map[string]string // query facet -> upstream parameter or criterion
	Params map[string]string // static upstream parameters

	PageSize    int
	DetailLimit int
}

const (
	DefaultPageSize    = 10
	DefaultDetailLimit = 10
)

func (s Source) Size() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return DefaultPageSize
}

func (s Source) Limit() int {
	if s.DetailLimit > 0 {
		return s.DetailLimit
	}
	return DefaultDetailLimit
}

type WarmStatus struct {
	LastRunAt  string            `json:"last_run_at"`
	LastOkAt   string            `json:"last_ok_at"`
	LastError  string            `json:"last_error"`
	LastPages  int               `json:"last_pages"`
	LastJobs   int               `json:"last_jobs"`
	Running    bool              `json:"running"`
	Failures   map[string]string `json:"failures,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}
