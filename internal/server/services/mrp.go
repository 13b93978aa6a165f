package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ropbridge/ropbridge/internal/common"
	"github.com/ropbridge/ropbridge/internal/logging"
	"github.com/ropbridge/ropbridge/internal/server/archive"
	"github.com/ropbridge/ropbridge/internal/server/clock"
	"github.com/ropbridge/ropbridge/internal/server/erp/stock"
	"github.com/ropbridge/ropbridge/internal/server/models"
)

// DemandPoster sends a consolidated demand document to the ERP.
type DemandPoster interface {
	PostDemandDocument(ctx context.Context, doc *models.DemandDocument) error
}

// MRPService nets submitted reorder-point planning output against live ERP
// stock and turns shortfalls into one consolidated demand document.
type MRPService struct {
	stock    stock.Repository
	poster   DemandPoster
	archiver archive.Archiver // nil disables payload archiving
	logger   logging.Logger
	clock    clock.Clock
}

func NewMRPService(st stock.Repository, poster DemandPoster, archiver archive.Archiver,
	logger logging.Logger, clk clock.Clock) *MRPService {
	return &MRPService{
		stock:    st,
		poster:   poster,
		archiver: archiver,
		logger:   logger,
		clock:    clk,
	}
}

// abcCode maps the planning classification letter to Logo's numeric code.
func abcCode(class string) int {
	switch strings.ToUpper(class) {
	case "A":
		return 1
	case "B":
		return 2
	case "C":
		return 3
	default:
		return 0
	}
}

// Process runs one netting pass. For every make-to-stock item whose net
// position (on hand + open purchase orders) sits below its reorder point, it
// writes the planning levels back to the ERP and appends a demand line of
// size orderQty - (ROP - net). If any lines were produced the document is
// posted as one fiche; an empty run posts nothing.
//
// Unknown item codes are skipped, not fatal; ERP read and write failures
// abort the run.
func (s *MRPService) Process(ctx context.Context, items []models.ReorderItem) (*models.MRPSummary, error) {
	now := s.clock.Now()

	ficheNo, err := s.stock.NextDemandNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("generating demand number: %w", err)
	}

	summary := &models.MRPSummary{}
	var lines []models.DemandLine

	for _, item := range items {
		summary.Processed++

		erpItem, err := s.stock.ItemLookup(ctx, item.ItemCode)
		if err != nil {
			if errors.Is(err, common.ErrItemNotFound) {
				s.logger.Warn(ctx, "item not found in erp", "item_code", item.ItemCode)
				summary.Skipped++
				continue
			}
			return nil, fmt.Errorf("looking up item %s: %w", item.ItemCode, err)
		}

		onHand, err := s.stock.OnHand(ctx, erpItem.Ref)
		if err != nil {
			return nil, fmt.Errorf("reading stock for %s: %w", item.ItemCode, err)
		}
		openPO, err := s.stock.OpenPO(ctx, erpItem.Ref)
		if err != nil {
			return nil, fmt.Errorf("reading open orders for %s: %w", item.ItemCode, err)
		}

		net := onHand + openPO
		if net >= item.ROP || item.PlanningType != "MTS" {
			summary.Skipped++
			continue
		}

		need := item.OrderQty - (item.ROP - net)

		if err := s.stock.UpdateReorderParams(ctx, erpItem.Ref,
			item.ROP, item.Max, item.SafetyStock, abcCode(item.ABCClass)); err != nil {
			return nil, fmt.Errorf("updating reorder params for %s: %w", item.ItemCode, err)
		}
		summary.Updated++

		lines = append(lines, models.DemandLine{
			ItemRef:  erpItem.Ref,
			LineNo:   len(lines) + 1,
			Amount:   need,
			UnitCode: erpItem.UnitCode,
		})
	}

	if len(lines) == 0 {
		s.logger.Info(ctx, "netting pass produced no demand", "processed", summary.Processed)
		return summary, nil
	}

	doc := &models.DemandDocument{
		FicheNo:   ficheNo,
		Date:      now,
		MPSCode:   "MRP",
		LineCount: len(lines),
		Lines:     lines,
	}

	if err := s.poster.PostDemandDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("posting demand document %s: %w", ficheNo, err)
	}

	summary.FicheNo = ficheNo
	summary.Posted = true

	s.logger.Info(ctx, "demand document posted",
		"fiche_no", ficheNo, "lines", len(lines), "updated", summary.Updated)

	s.archivePayload(ctx, doc)

	return summary, nil
}

// archivePayload stores the raw posted document. Best effort: an archive
// failure never undoes a successful post.
func (s *MRPService) archivePayload(ctx context.Context, doc *models.DemandDocument) {
	if s.archiver == nil {
		return
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error(ctx, "encoding archive payload failed", "fiche_no", doc.FicheNo, "error", err)
		return
	}
	key, err := s.archiver.Archive(ctx, doc.FicheNo, payload)
	if err != nil {
		s.logger.Error(ctx, "archiving demand payload failed", "fiche_no", doc.FicheNo, "error", err)
		return
	}
	s.logger.Info(ctx, "demand payload archived", "fiche_no", doc.FicheNo, "key", key)
}
