package collectionshttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/collections"
	"github.com/odyssey-erp/arcollect/internal/platform/httpx"
)

type monthsResponse struct {
	Months []string `json:"months"`
	Latest string   `json:"latest"`
}

type createActionRequest struct {
	Division    string          `json:"division"`
	ParentName  string          `json:"parentName"`
	RequestedOn string          `json:"requestedOn"`
	Owner       string          `json:"owner"`
	Comment     string          `json:"comment"`
	Total       decimal.Decimal `json:"total"`
}

type updateCommentRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) apiMonths(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	months, err := h.service.AvailableMonths(ctx)
	if err != nil {
		h.respondAPIError(w, "load months", err)
		return
	}
	resp := monthsResponse{Months: months}
	if resp.Months == nil {
		resp.Months = []string{}
	}
	if len(months) > 0 {
		resp.Latest = months[0]
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) apiOverview(w http.ResponseWriter, r *http.Request) {
	month, err := h.parseMonth(r)
	if err != nil {
		h.respondAPIError(w, "parse month", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ov, err := h.service.Overview(ctx, month)
	if err != nil {
		h.respondAPIError(w, "load overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ov)
}

func (h *Handler) apiDivision(w http.ResponseWriter, r *http.Request) {
	division, err := collections.ParseDivision(chi.URLParam(r, "division"))
	if err != nil {
		h.respondAPIError(w, "parse division", err)
		return
	}
	month, err := h.parseMonth(r)
	if err != nil {
		h.respondAPIError(w, "parse month", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dv, err := h.service.Division(ctx, division, month)
	if err != nil {
		h.respondAPIError(w, "load division", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dv)
}

func (h *Handler) apiListActions(w http.ResponseWriter, r *http.Request) {
	division, err := collections.ParseDivision(r.URL.Query().Get("division"))
	if err != nil {
		h.respondAPIError(w, "parse division", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.actions.List(ctx, division)
	if err != nil {
		h.respondAPIError(w, "list actions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) apiGetAction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondAPIError(w, "parse id", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	item, err := h.actions.Get(ctx, id)
	if err != nil {
		h.respondAPIError(w, "get action", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) apiCreateAction(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	in := actions.CreateInput{
		Division:   collections.Division(req.Division),
		ParentName: req.ParentName,
		Owner:      req.Owner,
		Comment:    req.Comment,
		Total:      req.Total,
	}
	if raw := strings.TrimSpace(req.RequestedOn); raw != "" {
		on, err := parseRequestedOn(raw)
		if err != nil {
			h.respondAPIError(w, "parse requestedOn", &actions.ValidationError{Fields: map[string]string{
				"requestedOn": "must be a date like 2024-12-31",
			}})
			return
		}
		in.RequestedOn = on
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	created, err := h.actions.Create(ctx, in)
	if err != nil {
		h.respondAPIError(w, "create action", err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/actions/%d", created.ID))
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) apiUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondAPIError(w, "parse id", err)
		return
	}
	var req updateCommentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	updated, err := h.actions.UpdateComment(ctx, id, req.Comment)
	if err != nil {
		h.respondAPIError(w, "update action comment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) apiDeleteAction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondAPIError(w, "parse id", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	deleted, err := h.actions.Delete(ctx, id)
	if err != nil {
		h.respondAPIError(w, "delete action", err)
		return
	}
	httpx.JSON(w, http.StatusOK, deleted)
}

// respondAPIError translates domain errors into problem responses.
func (h *Handler) respondAPIError(w http.ResponseWriter, context string, err error) {
	switch {
	case errors.Is(err, actions.ErrValidation):
		httpx.RespondError(w, err)
	case errors.Is(err, collections.ErrInvalidMonth), errors.Is(err, collections.ErrInvalidDivision):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
	case errors.Is(err, actions.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err))
	default:
		h.logError(context, err)
		httpx.RespondError(w, err)
	}
}

var errInvalidID = fmt.Errorf("%w: invalid action id", actions.ErrNotFound)

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func parseRequestedOn(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
