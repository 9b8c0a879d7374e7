package gleanapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

func (a *API) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req glean.RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
			return
		}
	}

	result, err := a.svc.Submit(r.Context(), &req)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit run")
		http.Error(w, `{"error":"invalid run window"}`, http.StatusBadRequest)
		return
	}

	if result.Skipped {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"skipped": true,
			"reason":  result.Reason,
		})
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("gleaner.run.id", result.ID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id": result.ID,
	})
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("gleaner.run.id", id))

	run, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get run", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("gleaner.run.status", string(run.Status)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(run)
}

func (a *API) handleListGleans(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("gleaner.run.id", id))

	// 404 for unknown runs, empty list for clean runs
	if _, ok, err := a.svc.Get(r.Context(), id); err != nil {
		a.logger.Error(r.Context(), err, "failed to get run", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	gleans, err := a.svc.Gleans(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list gleans", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if gleans == nil {
		gleans = []glean.Glean{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id": id,
		"count":  len(gleans),
		"gleans": gleans,
	})
}
