package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ropbridge/ropbridge/internal/common"
	"github.com/ropbridge/ropbridge/internal/dbx"
	"github.com/ropbridge/ropbridge/internal/logging"
	"github.com/ropbridge/ropbridge/internal/server/alerts"
	"github.com/ropbridge/ropbridge/internal/server/models"
	"github.com/ropbridge/ropbridge/internal/server/repositories/audit"
	"github.com/ropbridge/ropbridge/internal/server/repositories/refreshtokens"
	"github.com/ropbridge/ropbridge/internal/server/repositories/users"
	"github.com/ropbridge/ropbridge/internal/server/repositories/watermarks"

	_ "modernc.org/sqlite"
)

// openTxDB returns a throwaway database used only for transaction begin and
// commit; the in-memory repositories below ignore the handle they are given.
func openTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClock is a settable clock shared by a test's goroutines.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// newFakeClock starts in the recent past so freshly minted issued-at claims
// never land ahead of the real wall clock the JWT parser checks against.
func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().Add(-time.Minute)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memLedger is an in-memory refreshtokens.Repository with the same
// conditional-consume semantics as the SQL implementation.
type memLedger struct {
	mu           sync.Mutex
	rows         map[string]*models.RefreshToken
	failFinds    int
	createErr    error
	findCalls    int
	consumeCalls int
}

func newMemLedger() *memLedger {
	return &memLedger{rows: map[string]*models.RefreshToken{}}
}

func (l *memLedger) Create(ctx context.Context, token *models.RefreshToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	if _, ok := l.rows[token.Token]; ok {
		return errors.New("duplicate token value")
	}
	cp := *token
	l.rows[token.Token] = &cp
	return nil
}

func (l *memLedger) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.findCalls++
	if l.failFinds > 0 {
		l.failFinds--
		return nil, errors.New("transient store error")
	}
	row, ok := l.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *row
	return &cp, nil
}

func (l *memLedger) Consume(ctx context.Context, token string, replacedBy string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consumeCalls++
	row, ok := l.rows[token]
	if !ok || row.RevokedAt != nil {
		return common.ErrTokenConsumed
	}
	revoked := at
	row.RevokedAt = &revoked
	row.ReplacedBy = &replacedBy
	return nil
}

func (l *memLedger) RevokeAllActive(ctx context.Context, userID string, at time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, row := range l.rows {
		if row.UserID == userID && row.RevokedAt == nil && row.ExpiresAt.After(at) {
			revoked := at
			row.RevokedAt = &revoked
			n++
		}
	}
	return n, nil
}

// get returns a snapshot of one row for assertions.
func (l *memLedger) get(t *testing.T, token string) models.RefreshToken {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[token]
	if !ok {
		t.Fatalf("ledger row %q not found", token)
	}
	return *row
}

func (l *memLedger) activeCount(userID string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, row := range l.rows {
		if row.UserID == userID && row.Active(now) {
			n++
		}
	}
	return n
}

// memWatermarks is an in-memory monotonic watermark store.
type memWatermarks struct {
	mu     sync.Mutex
	marks  map[string]time.Time
	getErr error
}

func newMemWatermarks() *memWatermarks {
	return &memWatermarks{marks: map[string]time.Time{}}
}

func (w *memWatermarks) Get(ctx context.Context, userID string) (*models.TokenWatermark, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.getErr != nil {
		return nil, w.getErr
	}
	at, ok := w.marks[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.TokenWatermark{UserID: userID, TokensRevokedAt: at}, nil
}

func (w *memWatermarks) Raise(ctx context.Context, userID string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cur, ok := w.marks[userID]; ok && cur.After(at) {
		return nil
	}
	w.marks[userID] = at
	return nil
}

func (w *memWatermarks) mark(userID string) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	at, ok := w.marks[userID]
	return at, ok
}

func (w *memWatermarks) forget(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.marks, userID)
}

// memUsers is an in-memory credential store.
type memUsers struct {
	mu     sync.Mutex
	byName map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byName: map[string]*models.User{}}
}

func (u *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byName[user.UserName]; ok {
		return nil, errors.New("duplicate username")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	cp := *user
	u.byName[user.UserName] = &cp
	return user, nil
}

func (u *memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byName[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *memUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byName {
		if user.ID == id {
			cp := *user
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

// memAudit collects audit rows.
type memAudit struct {
	mu   sync.Mutex
	rows []models.IncomingRequest
}

func (a *memAudit) Log(ctx context.Context, req *models.IncomingRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, *req)
	return nil
}

// fakeRepoManager vends the in-memory repositories regardless of the handle.
type fakeRepoManager struct {
	ledger *memLedger
	wms    *memWatermarks
	users  *memUsers
	audit  *memAudit
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		ledger: newMemLedger(),
		wms:    newMemWatermarks(),
		users:  newMemUsers(),
		audit:  &memAudit{},
	}
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository { return m.users }

func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.ledger }

func (m *fakeRepoManager) Watermarks(db dbx.DBTX) watermarks.Repository { return m.wms }

func (m *fakeRepoManager) Audit(db dbx.DBTX) audit.Repository { return m.audit }

// recordAlerter captures security events for assertions.
type recordAlerter struct {
	mu     sync.Mutex
	events []alerts.Event
	err    error
}

func (a *recordAlerter) Notify(ctx context.Context, event alerts.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, event)
	return nil
}

func (a *recordAlerter) all() []alerts.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]alerts.Event, len(a.events))
	copy(out, a.events)
	return out
}
