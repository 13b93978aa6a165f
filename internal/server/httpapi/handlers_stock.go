package httpapi

import (
	"net/http"
	"strconv"
)

type stockStatusResponse struct {
	ItemRef        int     `json:"item_ref"`
	OnHand         float64 `json:"on_hand"`
	OpenPO         float64 `json:"open_po"`
	TotalAvailable float64 `json:"total_available"`
}

func (s *Server) handleStockStatus(w http.ResponseWriter, r *http.Request) {
	itemRef, err := strconv.Atoi(r.PathValue("itemRef"))
	if err != nil || itemRef <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_item_ref")
		return
	}

	onHand, err := s.stock.OnHand(r.Context(), itemRef)
	if err != nil {
		s.logger.Error(r.Context(), "stock on-hand lookup failed", "item_ref", itemRef, "error", err)
		writeError(w, http.StatusBadGateway, "erp_unavailable")
		return
	}

	openPO, err := s.stock.OpenPO(r.Context(), itemRef)
	if err != nil {
		s.logger.Error(r.Context(), "stock open-po lookup failed", "item_ref", itemRef, "error", err)
		writeError(w, http.StatusBadGateway, "erp_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, stockStatusResponse{
		ItemRef:        itemRef,
		OnHand:         onHand,
		OpenPO:         openPO,
		TotalAvailable: onHand + openPO,
	})
}
