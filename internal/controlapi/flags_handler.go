package controlapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/verdandi/internal/engine"
	"github.com/rafaeljc/verdandi/internal/logger"
	"github.com/rafaeljc/verdandi/internal/registry"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// persistTimeout bounds each background write-through attempt.
	persistTimeout = 5 * time.Second
)

// handleCreateFlag handles POST /api/v1/flags.
func (a *API) handleCreateFlag(w http.ResponseWriter, r *http.Request) {
	var req CreateFlagRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newErrorResponse("invalid_json", "request body is not valid JSON"))
		return
	}

	req.Sanitize()
	if err := req.Validate(); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newErrorResponse("validation_failed", err.Error()))
		return
	}

	created, err := a.registry.Create(req.ToFlag())
	if err != nil {
		if errors.Is(err, registry.ErrDuplicateKey) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, newErrorResponse("duplicate_key", err.Error()))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newErrorResponse("invalid_flag", err.Error()))
		return
	}

	a.persistAsync(r.Context(), "create", created.Key, func(ctx context.Context) error {
		f := *created
		return a.repo.CreateFlag(ctx, &f)
	})

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, NewFlagResponse(created))
}

// handleListFlags handles GET /api/v1/flags with optional environment filter
// and page/page_size pagination.
func (a *API) handleListFlags(w http.ResponseWriter, r *http.Request) {
	var flags []*engine.Flag
	if env := r.URL.Query().Get("environment"); env != "" {
		flags = a.registry.ListByEnvironment(engine.Environment(env))
	} else {
		flags = a.registry.List()
	}

	page, pageSize := paginationParams(r)
	totalItems := len(flags)
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start > totalItems {
		start = totalItems
	}
	end := start + pageSize
	if end > totalItems {
		end = totalItems
	}

	data := make([]FlagResponse, 0, end-start)
	for _, f := range flags[start:end] {
		data = append(data, NewFlagResponse(f))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PaginatedResponse{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: totalItems,
			TotalPages: totalPages,
		},
	})
}

// handleGetFlag handles GET /api/v1/flags/{key}.
func (a *API) handleGetFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	f, err := a.registry.Get(key)
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, newErrorResponse("not_found", err.Error()))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, NewFlagResponse(f))
}

// handleUpdateFlag handles PATCH /api/v1/flags/{key}. Omitted fields keep
// their current value.
func (a *API) handleUpdateFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req UpdateFlagRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newErrorResponse("invalid_json", "request body is not valid JSON"))
		return
	}

	if err := req.Validate(); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newErrorResponse("validation_failed", err.Error()))
		return
	}

	updated, err := a.registry.Update(key, req.ToPatch())
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, newErrorResponse("not_found", err.Error()))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newErrorResponse("invalid_flag", err.Error()))
		return
	}

	a.persistAsync(r.Context(), "update", updated.Key, func(ctx context.Context) error {
		f := *updated
		return a.repo.UpdateFlag(ctx, &f)
	})

	render.Status(r, http.StatusOK)
	render.JSON(w, r, NewFlagResponse(updated))
}

// handleDeleteFlag handles DELETE /api/v1/flags/{key}. Idempotent: deleting
// an absent key still returns 204.
func (a *API) handleDeleteFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	a.registry.Delete(key)

	a.persistAsync(r.Context(), "delete", key, func(ctx context.Context) error {
		return a.repo.DeleteFlag(ctx, key)
	})

	render.NoContent(w, r)
}

// persistAsync writes a mutation through to the backing store without
// blocking the response. The registry is authoritative; a failed write is
// logged and reconciled by the next syncer cycle.
func (a *API) persistAsync(ctx context.Context, op, key string, fn func(context.Context) error) {
	if a.repo == nil {
		return
	}

	log := logger.FromContext(ctx)
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := fn(pctx); err != nil {
			log.Error("flag persistence failed",
				slog.String("operation", op),
				slog.String("flag_key", key),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// paginationParams parses and clamps page and page_size.
func paginationParams(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = defaultPageSize

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
			if pageSize > maxPageSize {
				pageSize = maxPageSize
			}
		}
	}
	return page, pageSize
}
