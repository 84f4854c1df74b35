package collectionshttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/odyssey-erp/arcollect/internal/collections/export"
)

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	month, err := h.parseMonth(r)
	if err != nil {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}
	section := strings.TrimSpace(r.URL.Query().Get("section"))
	if section == "" {
		section = export.SectionSummary
	}
	if !export.ValidSection(section) {
		http.Error(w, "invalid section", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ov, err := h.service.Overview(ctx, month)
	if err != nil {
		h.handleServerError(w, "load overview", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteOverviewCSV(buf, ov, section); err != nil {
		h.handleServerError(w, "write overview csv", err)
		return
	}

	filename := fmt.Sprintf("collections-%s-%s.csv", section, ov.Month)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.logError("pdf exporter", errors.New("pdf exporter not configured"))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	month, err := h.parseMonth(r)
	if err != nil {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	// Rendering goes through Chromium, so only the data load shares the
	// request timeout.
	loadCtx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	ov, err := h.service.Overview(loadCtx, month)
	cancel()
	if err != nil {
		h.handleServerError(w, "load overview", err)
		return
	}

	pdfBytes, err := h.pdf.RenderOverview(r.Context(), ov)
	if err != nil {
		h.logError("render pdf", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	filename := fmt.Sprintf("collections-overview-%s.pdf", ov.Month)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}
