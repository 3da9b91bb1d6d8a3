package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/media"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/shares"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pool or an
// open transaction, so services can compose several of them atomically.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Folders(db dbx.DBTX) folders.Repository
	Shares(db dbx.DBTX) shares.Repository
	Media(db dbx.DBTX) media.Repository
	Documents(db dbx.DBTX) documents.Repository
}
