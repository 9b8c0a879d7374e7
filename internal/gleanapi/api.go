// Package gleanapi exposes the detection run lifecycle over HTTP.
package gleanapi

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/gleaner/internal/glean"
)

// RunService defines the business operations gleanapi needs.
type RunService interface {
	Submit(ctx context.Context, req *glean.RunRequest) (*glean.SubmitResult, error)
	Get(ctx context.Context, id string) (*glean.Run, bool, error)
	Gleans(ctx context.Context, id string) ([]glean.Glean, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    RunService
}

// New creates a new API handler.
func New(logger log.Logger, svc RunService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("run service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", a.handleSubmitRun)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Get("/runs/{id}/gleans", a.handleListGleans)
	})
}
