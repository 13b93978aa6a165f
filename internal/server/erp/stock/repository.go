// Package stock reads and writes item planning data in the Logo ERP
// database.
package stock

import (
	"context"
	"time"
)

// Item is the ERP-side identity of a material card.
type Item struct {
	Ref      int
	UnitCode string
}

// Repository is the ERP collaborator used by the netting run and the stock
// status endpoint.
type Repository interface {
	// ItemLookup resolves a material code to its ERP reference and main
	// unit. Returns common.ErrItemNotFound for unknown codes.
	ItemLookup(ctx context.Context, code string) (*Item, error)

	// OnHand returns the summed on-hand quantity across counted warehouses.
	OnHand(ctx context.Context, itemRef int) (float64, error)

	// OpenPO returns the open purchase-order quantity (ordered minus shipped)
	// for approved, uncancelled orders.
	OpenPO(ctx context.Context, itemRef int) (float64, error)

	// NextDemandNumber produces the next demand document number in the
	// MRPyyyymm-NNNNN sequence for the current month.
	NextDemandNumber(ctx context.Context, now time.Time) (string, error)

	// UpdateReorderParams writes min/max/safety levels and the ABC code back
	// to the item's central-warehouse planning record.
	UpdateReorderParams(ctx context.Context, itemRef int, min, max, safety float64, abcCode int) error
}
