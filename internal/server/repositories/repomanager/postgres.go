package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/ropbridge/ropbridge/internal/dbx"
	"github.com/ropbridge/ropbridge/internal/server/migrations"
	"github.com/ropbridge/ropbridge/internal/server/repositories/audit"
	"github.com/ropbridge/ropbridge/internal/server/repositories/refreshtokens"
	"github.com/ropbridge/ropbridge/internal/server/repositories/users"
	"github.com/ropbridge/ropbridge/internal/server/repositories/watermarks"
)

var gooseUpContext = goose.UpContext

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Watermarks(db dbx.DBTX) watermarks.Repository {
	return watermarks.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}
