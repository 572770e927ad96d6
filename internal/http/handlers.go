package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"scontrino/internal/core"
	"scontrino/internal/insights"
)

const maxImageBytes = 10 << 20 // 10MB

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"online": s.receipts.Online(),
	})
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	receipts, err := s.receipts.List(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	receipt, err := s.receipts.GetByID(r.Context(), r.PathValue("id"), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleAddReceipt(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var receipt core.Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	stored, err := s.receipts.Add(r.Context(), uid, receipt)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Receipt created",
		"receipt_id", stored.ID,
		"user_id", uid,
		"store_name", stored.StoreName,
		"item_count", len(stored.Items))
	writeJSON(w, http.StatusCreated, stored)
}

// handleScanReceipt runs the full pipeline: photo in, canonical receipt out.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if s.extractor == nil || !s.extractor.IsAvailable() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "extraction is not configured"})
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart body"})
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image file"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read image"})
		return
	}

	raw, err := s.extractor.ExtractReceipt(r.Context(), imageFormat(header.Filename, header.Header.Get("Content-Type")), image)
	if err != nil {
		slog.ErrorContext(r.Context(), "Extraction call failed", "user_id", uid, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "extraction failed"})
		return
	}

	receipt, err := s.normalizer.Normalize(raw)
	if err != nil {
		slog.WarnContext(r.Context(), "Extraction payload rejected", "user_id", uid, "error", err)
		writeError(w, err)
		return
	}

	stored, err := s.receipts.Add(r.Context(), uid, receipt)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Receipt scanned",
		"receipt_id", stored.ID,
		"user_id", uid,
		"store_name", stored.StoreName,
		"item_count", len(stored.Items))
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdateReceipt(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var patch core.ReceiptPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if patch.IsEmpty() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty patch"})
		return
	}

	merged, err := s.receipts.Update(r.Context(), r.PathValue("id"), uid, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.receipts.Delete(r.Context(), r.PathValue("id"), uid); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type insightsResponse struct {
	TotalSpend        string            `json:"total_spend"`
	SpendByCategory   map[string]string `json:"spend_by_category"`
	SpendByStore      map[string]string `json:"spend_by_store"`
	TopCategory       string            `json:"top_category,omitempty"`
	TopStore          string            `json:"top_store,omitempty"`
	MonthlyTrend      float64           `json:"monthly_trend_pct"`
	WeeklyTrend       float64           `json:"weekly_trend_pct"`
	AverageDailySpend string            `json:"average_daily_spend"`
	Subscriptions     []core.Receipt    `json:"subscriptions"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	receipts, err := s.receipts.List(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now()
	resp := insightsResponse{
		TotalSpend:        insights.TotalSpend(receipts).StringFixed(2),
		SpendByCategory:   map[string]string{},
		SpendByStore:      map[string]string{},
		MonthlyTrend:      insights.MonthlyTrend(receipts, now),
		WeeklyTrend:       insights.WeeklyTrend(receipts, now),
		AverageDailySpend: insights.AverageDailySpend(receipts, now).StringFixed(2),
		Subscriptions:     insights.DetectSubscriptions(receipts),
	}
	for c, amount := range insights.SpendByCategory(receipts) {
		resp.SpendByCategory[string(c)] = amount.StringFixed(2)
	}
	for name, amount := range insights.SpendByStore(receipts) {
		resp.SpendByStore[name] = amount.StringFixed(2)
	}
	if top, _ := insights.TopCategory(receipts); top != "" {
		resp.TopCategory = string(top)
	}
	if top, _ := insights.TopStore(receipts); top != "" {
		resp.TopStore = top
	}

	writeJSON(w, http.StatusOK, resp)
}

func imageFormat(filename, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
		return ext
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if parts := strings.SplitN(mt, "/", 2); len(parts) == 2 && parts[0] == "image" {
			return parts[1]
		}
	}
	return "jpeg"
}
