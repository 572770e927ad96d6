// Package http exposes the receipt service as a JSON API. The caller's
// identity arrives as an opaque user id header from the identity layer in
// front of this service; there is no authentication here.
package http

import (
	"context"
	"net/http"

	"scontrino/internal/extract"
	"scontrino/internal/service"
)

// Extractor turns a receipt photo into raw model output.
type Extractor interface {
	ExtractReceipt(ctx context.Context, imageFormat string, image []byte) ([]byte, error)
	IsAvailable() bool
}

type Server struct {
	http.Server

	receipts   *service.ReceiptService
	extractor  Extractor
	normalizer *extract.Normalizer
}

func NewServer(addr string, receipts *service.ReceiptService, extractor Extractor, normalizer *extract.Normalizer) *Server {
	s := &Server{
		receipts:   receipts,
		extractor:  extractor,
		normalizer: normalizer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/receipts", s.handleListReceipts)
	mux.HandleFunc("POST /api/receipts", s.handleAddReceipt)
	mux.HandleFunc("POST /api/receipts/scan", s.handleScanReceipt)
	mux.HandleFunc("GET /api/receipts/{id}", s.handleGetReceipt)
	mux.HandleFunc("PATCH /api/receipts/{id}", s.handleUpdateReceipt)
	mux.HandleFunc("DELETE /api/receipts/{id}", s.handleDeleteReceipt)
	mux.HandleFunc("GET /api/insights", s.handleInsights)

	s.Addr = addr
	s.Handler = withTracing(mux)
	return s
}
