package collectionshttp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/collections"
	"github.com/odyssey-erp/arcollect/internal/collections/ui"
	"github.com/odyssey-erp/arcollect/internal/view"
)

const requestTimeout = 5 * time.Second

const defaultHeartbeat = 25 * time.Second

// CollectionsService defines the dashboard data contract used by the handler.
type CollectionsService interface {
	AvailableMonths(ctx context.Context) ([]string, error)
	Overview(ctx context.Context, month string) (collections.Overview, error)
	Division(ctx context.Context, division collections.Division, month string) (collections.DivisionView, error)
}

// ActionsService manages follow-up actions.
type ActionsService interface {
	List(ctx context.Context, division collections.Division) ([]actions.Action, error)
	Get(ctx context.Context, id int64) (actions.Action, error)
	Create(ctx context.Context, in actions.CreateInput) (actions.Action, error)
	UpdateComment(ctx context.Context, id int64, comment string) (actions.Action, error)
	Delete(ctx context.Context, id int64) (actions.Action, error)
}

// PDFService renders the overview to PDF bytes.
type PDFService interface {
	RenderOverview(ctx context.Context, ov collections.Overview) ([]byte, error)
}

// ChangeSource lets the event stream follow action changes.
type ChangeSource interface {
	Subscribe(filter changes.Filter, onChange func(changes.Change)) func()
}

// Handler serves the dashboard pages, JSON API, exports and event stream.
type Handler struct {
	logger    *slog.Logger
	service   CollectionsService
	actions   ActionsService
	templates *view.Engine
	charts    ui.ChartRenderer
	pdf       PDFService
	changes   ChangeSource
	auth      *BasicAuth
	heartbeat time.Duration
	csvPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the collections HTTP handler. pdf and changes may be nil.
func NewHandler(logger *slog.Logger, service CollectionsService, actionsSvc ActionsService, templates *view.Engine, charts ui.ChartRenderer, pdf PDFService, source ChangeSource) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if charts == nil {
		charts = ui.SVGRenderer{}
	}
	h := &Handler{
		logger:    logger,
		service:   service,
		actions:   actionsSvc,
		templates: templates,
		charts:    charts,
		pdf:       pdf,
		changes:   source,
		heartbeat: defaultHeartbeat,
		now:       time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithAuth guards mutating routes with auth.
func (h *Handler) WithAuth(auth *BasicAuth) {
	h.auth = auth
}

// WithHeartbeat overrides the event stream keep-alive interval.
func (h *Handler) WithHeartbeat(d time.Duration) {
	if d > 0 {
		h.heartbeat = d
	}
}

func (h *Handler) parseMonth(r *http.Request) (string, error) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		return "", nil
	}
	if _, err := collections.ParseMonth(month); err != nil {
		return "", err
	}
	return month, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title, live string, data any) {
	err := h.templates.RenderStatus(w, status, name, view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		LiveURL:     live,
		Data:        data,
	})
	if err != nil {
		h.handleServerError(w, "render template", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "pages/error.html", http.StatusText(status), "", map[string]any{"Message": message})
}

func (h *Handler) handlePageError(w http.ResponseWriter, r *http.Request, context string, err error) {
	switch {
	case errors.Is(err, collections.ErrInvalidMonth):
		h.renderError(w, r, http.StatusBadRequest, "The report month must look like 2024-12.")
	case errors.Is(err, collections.ErrInvalidDivision):
		h.renderError(w, r, http.StatusNotFound, "Unknown division.")
	case errors.Is(err, actions.ErrNotFound):
		h.renderError(w, r, http.StatusNotFound, "The follow-up action no longer exists.")
	default:
		h.handleServerError(w, context, err)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

func liveURL(division collections.Division) string {
	if division == "" {
		return "/events"
	}
	return "/events?division=" + division.Slug()
}

func isPartialRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
