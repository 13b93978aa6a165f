package stock

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ropbridge/ropbridge/internal/common"
)

func newRepoWithMock(t *testing.T) (*MSSQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	repo, err := NewMSSQLRepository(db, "113", "01")
	if err != nil {
		t.Fatalf("NewMSSQLRepository error: %v", err)
	}
	return repo, mock, db
}

func TestNewMSSQLRepository_RejectsNonNumericShards(t *testing.T) {
	tests := []struct {
		name   string
		firm   string
		period string
	}{
		{"firm with letters", "113a", "01"},
		{"firm with sql", "1;DROP TABLE x", "01"},
		{"empty firm", "", "01"},
		{"period with letters", "113", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMSSQLRepository(nil, tt.firm, tt.period)
			if !errors.Is(err, common.ErrInvalidFirmNo) {
				t.Fatalf("want common.ErrInvalidFirmNo, got %v", err)
			}
		})
	}
}

func TestItemLookup_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+I\.LOGICALREF,.*FROM\s+LG_113_ITEMS\s+I\s+LEFT\s+JOIN\s+LG_113_UNITSETL\s+U\b.*WHERE\s+I\.CODE\s*=\s*@Code\s*$`

	rows := sqlmock.NewRows([]string{"LOGICALREF", "CODE"}).AddRow(4211, "ADET")
	mock.ExpectQuery(q).WithArgs(sql.Named("Code", "HM-001")).WillReturnRows(rows)

	got, err := repo.ItemLookup(context.Background(), "HM-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Ref != 4211 || got.UnitCode != "ADET" {
		t.Fatalf("unexpected item: %+v", got)
	}
}

func TestItemLookup_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+I\.LOGICALREF,.*FROM\s+LG_113_ITEMS\b`

	mock.ExpectQuery(q).WithArgs(sql.Named("Code", "missing")).WillReturnError(sql.ErrNoRows)

	_, err := repo.ItemLookup(context.Background(), "missing")
	if !errors.Is(err, common.ErrItemNotFound) {
		t.Fatalf("want common.ErrItemNotFound, got %v", err)
	}
}

func TestOnHand_SumsWarehouses(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+SUM\(ISNULL\(ONHAND,\s*0\)\)\s+FROM\s+LV_113_01_GNTOTST\s+WHERE\s+STOCKREF\s*=\s*@ItemRef\b`

	rows := sqlmock.NewRows([]string{"total"}).AddRow(125.5)
	mock.ExpectQuery(q).WithArgs(sql.Named("ItemRef", 4211)).WillReturnRows(rows)

	qty, err := repo.OnHand(context.Background(), 4211)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 125.5 {
		t.Fatalf("want 125.5, got %v", qty)
	}
}

func TestOnHand_NullSumIsZero(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+SUM\(ISNULL\(ONHAND,\s*0\)\)\s+FROM\s+LV_113_01_GNTOTST\b`

	rows := sqlmock.NewRows([]string{"total"}).AddRow(nil)
	mock.ExpectQuery(q).WithArgs(sql.Named("ItemRef", 4211)).WillReturnRows(rows)

	qty, err := repo.OnHand(context.Background(), 4211)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 0 {
		t.Fatalf("want 0 for empty sum, got %v", qty)
	}
}

func TestOpenPO_UsesPeriodTables(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+SUM\(ORFL\.AMOUNT\s*-\s*ORFL\.SHIPPEDAMOUNT\)\s+FROM\s+LG_113_01_ORFLINE\s+ORFL\s+INNER\s+JOIN\s+LG_113_01_ORFICHE\s+ORF\b.*INNER\s+JOIN\s+LG_113_ITEMS\s+ITM\b`

	rows := sqlmock.NewRows([]string{"total"}).AddRow(40.0)
	mock.ExpectQuery(q).WithArgs(sql.Named("ItemRef", 4211)).WillReturnRows(rows)

	qty, err := repo.OpenPO(context.Background(), 4211)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 40.0 {
		t.Fatalf("want 40, got %v", qty)
	}
}

func TestNextDemandNumber_ContinuesSequence(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+TOP\s+1\s+CONCAT\(.*FROM\s+LG_113_01_DEMANDFICHE\s+WHERE\s+FICHENO\s+LIKE\s+@Pattern\s+ORDER\s+BY\s+FICHENO\s+DESC\s*$`

	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"next"}).AddRow("MRP202602-00017")
	mock.ExpectQuery(q).WithArgs(sql.Named("Pattern", "MRP202602-%")).WillReturnRows(rows)

	got, err := repo.NextDemandNumber(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "MRP202602-00017" {
		t.Fatalf("unexpected fiche number: %q", got)
	}
}

func TestNextDemandNumber_FirstOfMonth(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+TOP\s+1\s+CONCAT\(.*FROM\s+LG_113_01_DEMANDFICHE\b`

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q).WithArgs(sql.Named("Pattern", "MRP202602-%")).WillReturnError(sql.ErrNoRows)

	got, err := repo.NextDemandNumber(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "MRP202602-00001" {
		t.Fatalf("unexpected fiche number: %q", got)
	}
}

func TestUpdateReorderParams(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+LG_113_INVDEF\s+SET\s+SAFELEVEL\s*=\s*@SafeLevel,.*WHERE\s+INVENNO\s*=\s*0\s+AND\s+ITEMREF\s*=\s*@ItemRef\s*$`

	mock.ExpectExec(q).
		WithArgs(sql.Named("SafeLevel", 5.0), sql.Named("AbcCode", 1),
			sql.Named("MinLevel", 10.0), sql.Named("MaxLevel", 100.0),
			sql.Named("ItemRef", 4211)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateReorderParams(context.Background(), 4211, 10, 100, 5, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
