package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
)

type errorResponse struct {
	Error string `json:"error"`
}

// pageEnvelope is the pagination wrapper used by every list endpoint.
type pageEnvelope struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	Data       any `json:"data"`
}

func newPageEnvelope(page catalog.Page, total int, data any) pageEnvelope {
	return pageEnvelope{
		Page:       page.Number,
		PerPage:    page.PerPage,
		Total:      total,
		TotalPages: page.TotalPages(total),
		Data:       data,
	}
}

func respondJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		zctx.From(r.Context()).Error("marshal response", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(raw); err != nil {
		zctx.From(r.Context()).Debug("write response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, code int, message string) {
	respondJSON(w, r, code, errorResponse{Error: message})
}

// pageFrom parses page/per_page query parameters, falling back to page 1 and
// the given page size. Values are clamped to sane bounds.
func pageFrom(r *http.Request, defaultPerPage int) catalog.Page {
	page := catalog.Page{Number: 1, PerPage: defaultPerPage}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page.Number = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		page.PerPage = v
	}
	if page.PerPage > maxPerPage {
		page.PerPage = maxPerPage
	}
	return page
}

const maxPerPage = 100
