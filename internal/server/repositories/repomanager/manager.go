package repomanager

import (
	"context"
	"database/sql"

	"github.com/ropbridge/ropbridge/internal/dbx"
	"github.com/ropbridge/ropbridge/internal/server/repositories/audit"
	"github.com/ropbridge/ropbridge/internal/server/repositories/refreshtokens"
	"github.com/ropbridge/ropbridge/internal/server/repositories/users"
	"github.com/ropbridge/ropbridge/internal/server/repositories/watermarks"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Watermarks(db dbx.DBTX) watermarks.Repository
	Audit(db dbx.DBTX) audit.Repository
}
