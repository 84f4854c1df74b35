package collectionshttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/collections"
	"github.com/odyssey-erp/arcollect/internal/collections/ui"
)

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	month, err := h.parseMonth(r)
	if err != nil {
		h.handlePageError(w, r, "parse month", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ov, err := h.service.Overview(ctx, month)
	if err != nil {
		h.handlePageError(w, r, "load overview", err)
		return
	}
	vm, err := ui.BuildOverview(ov, h.charts)
	if err != nil {
		h.handleServerError(w, "render charts", err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/overview.html", "Overview", liveURL(""), vm)
}

func (h *Handler) handleDivision(w http.ResponseWriter, r *http.Request) {
	division, err := collections.ParseDivision(chi.URLParam(r, "division"))
	if err != nil {
		h.handlePageError(w, r, "parse division", err)
		return
	}
	month, err := h.parseMonth(r)
	if err != nil {
		h.handlePageError(w, r, "parse month", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dv, err := h.service.Division(ctx, division, month)
	if err != nil {
		h.handlePageError(w, r, "load division", err)
		return
	}
	vm, err := ui.BuildDivision(dv, h.charts)
	if err != nil {
		h.handleServerError(w, "render charts", err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/division.html", division.String(), liveURL(division), vm)
}

func (h *Handler) handleActions(w http.ResponseWriter, r *http.Request) {
	division, err := collections.ParseDivision(chi.URLParam(r, "division"))
	if err != nil {
		h.handlePageError(w, r, "parse division", err)
		return
	}
	var editID int64
	if raw := r.URL.Query().Get("edit"); raw != "" {
		editID, _ = strconv.ParseInt(raw, 10, 64)
	}
	h.showActions(w, r, division, http.StatusOK, func(vm *ui.ActionsViewModel) { vm.EditID = editID })
}

func (h *Handler) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	division, err := collections.ParseDivision(chi.URLParam(r, "division"))
	if err != nil {
		h.handlePageError(w, r, "parse division", err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := ui.ActionForm{
		ParentName:  r.PostForm.Get("parentName"),
		RequestedOn: r.PostForm.Get("requestedOn"),
		Owner:       r.PostForm.Get("owner"),
		Comment:     r.PostForm.Get("comment"),
		Total:       r.PostForm.Get("total"),
	}
	in, fieldErrs := parseActionForm(division, form)
	if len(fieldErrs) == 0 {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		_, err = h.actions.Create(ctx, in)
		var verr *actions.ValidationError
		switch {
		case errors.As(err, &verr):
			fieldErrs = verr.Fields
		case err != nil:
			h.handleServerError(w, "create action", err)
			return
		}
	}
	if len(fieldErrs) > 0 {
		h.showActions(w, r, division, http.StatusUnprocessableEntity, func(vm *ui.ActionsViewModel) {
			vm.Form = form
			vm.Errors = fieldErrs
		})
		return
	}
	h.afterMutation(w, r, division)
}

func (h *Handler) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	division, id, ok := h.actionTarget(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	_, err := h.actions.UpdateComment(ctx, id, r.PostForm.Get("comment"))
	var verr *actions.ValidationError
	switch {
	case errors.As(err, &verr):
		h.showActions(w, r, division, http.StatusUnprocessableEntity, func(vm *ui.ActionsViewModel) {
			vm.EditID = id
			vm.Errors = verr.Fields
		})
		return
	case err != nil:
		h.handlePageError(w, r, "update action comment", err)
		return
	}
	h.afterMutation(w, r, division)
}

func (h *Handler) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	division, id, ok := h.actionTarget(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, err := h.actions.Delete(ctx, id); err != nil {
		h.handlePageError(w, r, "delete action", err)
		return
	}
	h.afterMutation(w, r, division)
}

// actionTarget resolves the division and action id of a mutation and checks
// the action belongs to that division.
func (h *Handler) actionTarget(w http.ResponseWriter, r *http.Request) (collections.Division, int64, bool) {
	division, err := collections.ParseDivision(chi.URLParam(r, "division"))
	if err != nil {
		h.handlePageError(w, r, "parse division", err)
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderError(w, r, http.StatusNotFound, "The follow-up action no longer exists.")
		return "", 0, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	current, err := h.actions.Get(ctx, id)
	if err == nil && current.Division != division {
		err = actions.ErrNotFound
	}
	if err != nil {
		h.handlePageError(w, r, "load action", err)
		return "", 0, false
	}
	return division, id, true
}

func (h *Handler) showActions(w http.ResponseWriter, r *http.Request, division collections.Division, status int, adjust func(*ui.ActionsViewModel)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.actions.List(ctx, division)
	if err != nil {
		h.handleServerError(w, "list actions", err)
		return
	}
	vm := ui.BuildActions(division, items)
	if adjust != nil {
		adjust(&vm)
	}
	if isPartialRequest(r) && status == http.StatusOK {
		if err := h.templates.RenderPartial(w, "partials/actions_table", vm); err != nil {
			h.handleServerError(w, "render actions table", err)
		}
		return
	}
	h.render(w, r, status, "pages/actions.html", division.String()+" actions", liveURL(division), vm)
}

func (h *Handler) afterMutation(w http.ResponseWriter, r *http.Request, division collections.Division) {
	if isPartialRequest(r) {
		h.showActions(w, r, division, http.StatusOK, nil)
		return
	}
	http.Redirect(w, r, "/divisions/"+division.Slug()+"/actions", http.StatusSeeOther)
}

// parseActionForm converts submitted strings. Structural checks stay with the
// actions service; only values that cannot be parsed are reported here.
func parseActionForm(division collections.Division, form ui.ActionForm) (actions.CreateInput, map[string]string) {
	errs := map[string]string{}
	in := actions.CreateInput{
		Division:   division,
		ParentName: form.ParentName,
		Owner:      form.Owner,
		Comment:    form.Comment,
	}
	if raw := strings.TrimSpace(form.RequestedOn); raw != "" {
		on, err := time.Parse("2006-01-02", raw)
		if err != nil {
			errs["requestedOn"] = "must be a date like 2024-12-31"
		}
		in.RequestedOn = on
	}
	if raw := strings.TrimSpace(form.Total); raw != "" {
		total, err := parseAmount(raw)
		if err != nil {
			errs["total"] = "must be a number"
		}
		in.Total = total
	}
	if len(errs) > 0 {
		return in, errs
	}
	return in, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	return decimal.NewFromString(cleaned)
}
