package query

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"DutchAuction/internal/ledger"
	"DutchAuction/internal/observability"
)

// Handler exposes the read API over HTTP/JSON:
//
//	GET /v1/auctions/{address}          auction summary
//	GET /v1/auctions/{address}/receipts recent receipts (?limit=N)
//
// Commands never arrive here; submissions go through NATS only.
type Handler struct {
	svc     *Service
	metrics *observability.Metrics
}

func NewHandler(svc *Service, metrics *observability.Metrics) *Handler {
	return &Handler{svc: svc, metrics: metrics}
}

// Register mounts the read endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/auctions/", h.handleAuctions)
}

func (h *Handler) handleAuctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "auctions", http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/auctions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	addr, err := ledger.ParseAddress(parts[0])
	if err != nil {
		h.writeError(w, "auctions", http.StatusBadRequest, "invalid auction address")
		return
	}

	switch {
	case len(parts) == 1:
		h.getAuction(w, r, addr)
	case len(parts) == 2 && parts[1] == "receipts":
		h.listReceipts(w, r, addr)
	default:
		h.writeError(w, "auctions", http.StatusNotFound, "not found")
	}
}

func (h *Handler) getAuction(w http.ResponseWriter, r *http.Request, addr ledger.Address) {
	start := time.Now()
	sum, err := h.svc.GetAuction(r.Context(), addr)
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, "get_auction", http.StatusNotFound, "auction not found")
		return
	}
	if err != nil {
		h.writeError(w, "get_auction", http.StatusInternalServerError, "query failed")
		return
	}
	h.writeJSON(w, "get_auction", start, sum)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request, addr ledger.Address) {
	start := time.Now()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	receipts, err := h.svc.ListReceipts(r.Context(), addr, limit)
	if err != nil {
		h.writeError(w, "list_receipts", http.StatusInternalServerError, "query failed")
		return
	}
	h.writeJSON(w, "list_receipts", start, map[string]interface{}{"receipts": receipts})
}

func (h *Handler) writeJSON(w http.ResponseWriter, endpoint string, start time.Time, v interface{}) {
	if h.metrics != nil {
		h.metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
		h.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, endpoint string, status int, msg string) {
	if h.metrics != nil {
		h.metrics.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
