package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ropbridge/ropbridge/internal/server/models"
)

func (s *Server) handleMRPCalculate(w http.ResponseWriter, r *http.Request) {
	var items []models.ReorderItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "empty_item_list")
		return
	}

	summary, err := s.mrp.Process(r.Context(), items)
	if err != nil {
		s.logger.Error(r.Context(), "mrp netting run failed", "items", len(items), "error", err)
		writeError(w, http.StatusBadGateway, "erp_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
