package models

import "time"

// ReorderItem is one row of submitted reorder-point planning output.
type ReorderItem struct {
	ItemCode     string  `json:"item_id"`
	ROP          float64 `json:"rop"`
	Max          float64 `json:"max"`
	SafetyStock  float64 `json:"safety_stock"`
	OrderQty     float64 `json:"order_quantity"`
	ABCClass     string  `json:"abc_class"`
	PlanningType string  `json:"planning_type"`
}

// DemandLine is one line of the consolidated demand document sent to the ERP.
type DemandLine struct {
	ItemRef  int     `json:"item_ref"`
	LineNo   int     `json:"line_no"`
	Amount   float64 `json:"amount"`
	UnitCode string  `json:"unit_code"`
}

// DemandDocument is the consolidated material demand posted to the ERP REST
// service after netting. The exact ERP wire format is out of scope; this is
// the neutral shape the Logo client serializes.
type DemandDocument struct {
	FicheNo   string       `json:"fiche_no"`
	Date      time.Time    `json:"date"`
	UserNo    int          `json:"user_no"`
	MPSCode   string       `json:"mps_code"`
	LineCount int          `json:"line_count"`
	Lines     []DemandLine `json:"lines"`
}

// MRPSummary reports the outcome of one netting run.
type MRPSummary struct {
	FicheNo   string `json:"fiche_no,omitempty"`
	Processed int    `json:"processed"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Posted    bool   `json:"posted"`
}
