package stock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ropbridge/ropbridge/internal/common"
	"github.com/ropbridge/ropbridge/internal/dbx"
)

// MSSQLRepository implements Repository against a Logo SQL Server database.
// Logo shards its schema per firm and per fiscal period, so table names carry
// the firm and period numbers (LG_001_ITEMS, LG_001_01_ORFLINE, ...).
type MSSQLRepository struct {
	db     dbx.DBTX
	firm   string
	period string
}

// NewMSSQLRepository constructs a repository for the given firm and period
// numbers. Both are interpolated into table names and must be purely numeric;
// anything else is rejected before it can reach a query string.
func NewMSSQLRepository(db dbx.DBTX, firmNo, periodNo string) (*MSSQLRepository, error) {
	if !allDigits(firmNo) {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidFirmNo, firmNo)
	}
	if !allDigits(periodNo) {
		return nil, fmt.Errorf("%w: period %q", common.ErrInvalidFirmNo, periodNo)
	}
	return &MSSQLRepository{db: db, firm: firmNo, period: periodNo}, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (r *MSSQLRepository) firmTable(name string) string {
	return fmt.Sprintf("LG_%s_%s", r.firm, name)
}

func (r *MSSQLRepository) periodTable(prefix, name string) string {
	return fmt.Sprintf("%s_%s_%s_%s", prefix, r.firm, r.period, name)
}

func (r *MSSQLRepository) ItemLookup(ctx context.Context, code string) (*Item, error) {
	query := fmt.Sprintf(`
		SELECT I.LOGICALREF, ISNULL(U.CODE, '')
		FROM %s I
		LEFT JOIN %s U ON U.UNITSETREF = I.UNITSETREF AND U.MAINUNIT = 1
		WHERE I.CODE = @Code`,
		r.firmTable("ITEMS"), r.firmTable("UNITSETL"))

	item := &Item{}
	err := r.db.QueryRowContext(ctx, query, sql.Named("Code", code)).Scan(&item.Ref, &item.UnitCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrItemNotFound
		}
		return nil, fmt.Errorf("erp db error: %w", err)
	}
	return item, nil
}

// OnHand sums warehouse totals, skipping the virtual and quarantine inventory
// slots Logo reserves.
func (r *MSSQLRepository) OnHand(ctx context.Context, itemRef int) (float64, error) {
	query := fmt.Sprintf(`
		SELECT SUM(ISNULL(ONHAND, 0))
		FROM %s
		WHERE STOCKREF = @ItemRef AND INVENNO NOT IN (-1, 5, 6, 9, 10, 11, 12)`,
		r.periodTable("LV", "GNTOTST"))

	return r.scalarQty(ctx, query, sql.Named("ItemRef", itemRef))
}

// OpenPO returns ordered-minus-shipped over approved purchase orders.
func (r *MSSQLRepository) OpenPO(ctx context.Context, itemRef int) (float64, error) {
	query := fmt.Sprintf(`
		SELECT SUM(ORFL.AMOUNT - ORFL.SHIPPEDAMOUNT)
		FROM %s ORFL
		INNER JOIN %s ORF ON ORF.LOGICALREF = ORFL.ORDFICHEREF
		INNER JOIN %s ITM ON ITM.LOGICALREF = ORFL.STOCKREF
		WHERE ORF.TRCODE = 2 AND ORFL.TRCODE = 2 AND ITM.ACTIVE = 0
		AND ORF.CANCELLED = 0 AND ORFL.CANCELLED = 0 AND ORFL.CLOSED = 0
		AND (ORFL.AMOUNT - ORFL.SHIPPEDAMOUNT) > 0
		AND ORF.STATUS = 4 AND ITM.LOGICALREF = @ItemRef`,
		r.periodTable("LG", "ORFLINE"), r.periodTable("LG", "ORFICHE"), r.firmTable("ITEMS"))

	return r.scalarQty(ctx, query, sql.Named("ItemRef", itemRef))
}

// scalarQty runs an aggregate query whose SUM may be NULL when no rows match.
func (r *MSSQLRepository) scalarQty(ctx context.Context, query string, args ...any) (float64, error) {
	var qty sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&qty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("erp db error: %w", err)
	}
	return qty.Float64, nil
}

// NextDemandNumber continues the month's MRPyyyymm-NNNNN sequence, starting a
// fresh one when the month has no demand documents yet.
func (r *MSSQLRepository) NextDemandNumber(ctx context.Context, now time.Time) (string, error) {
	prefix := "MRP" + now.Format("200601") + "-"

	query := fmt.Sprintf(`
		SELECT TOP 1
			CONCAT(
				LEFT(FICHENO, 10),
				RIGHT('00000' + CAST(CAST(RIGHT(FICHENO, 5) AS INT) + 1 AS VARCHAR), 5)
			)
		FROM %s
		WHERE FICHENO LIKE @Pattern
		ORDER BY FICHENO DESC`,
		r.periodTable("LG", "DEMANDFICHE"))

	var next string
	err := r.db.QueryRowContext(ctx, query, sql.Named("Pattern", prefix+"%")).Scan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return prefix + "00001", nil
		}
		return "", fmt.Errorf("erp db error: %w", err)
	}
	return next, nil
}

// UpdateReorderParams writes the planning levels to the central warehouse
// record (INVENNO = 0).
func (r *MSSQLRepository) UpdateReorderParams(ctx context.Context, itemRef int, min, max, safety float64, abcCode int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET SAFELEVEL = @SafeLevel, ABCCODE = @AbcCode, MINLEVEL = @MinLevel, MAXLEVEL = @MaxLevel
		WHERE INVENNO = 0 AND ITEMREF = @ItemRef`,
		r.firmTable("INVDEF"))

	if _, err := r.db.ExecContext(ctx, query,
		sql.Named("SafeLevel", safety), sql.Named("AbcCode", abcCode),
		sql.Named("MinLevel", min), sql.Named("MaxLevel", max),
		sql.Named("ItemRef", itemRef)); err != nil {
		return fmt.Errorf("erp db error: %w", err)
	}
	return nil
}
