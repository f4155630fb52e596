package controlapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// handleEvaluate handles POST /api/v1/evaluate/{key}. The body carries the
// user context; the response carries the decision. Unknown keys are a valid
// decision (reason NOT_FOUND), not a 404: the evaluation surface never
// errors on flag state.
func (a *API) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req EvaluateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, newErrorResponse("invalid_json", "request body is not valid JSON"))
			return
		}
	}

	d := a.engine.Evaluate(r.Context(), key, req.ToUserContext())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EvaluateResponse{
		FlagKey: d.FlagKey,
		Enabled: d.Enabled,
		Reason:  string(d.Reason),
		Variant: d.Variant,
		Config:  d.Config,
	})
}
