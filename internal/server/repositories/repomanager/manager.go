package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/certificates"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/inbox"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/links"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/procedures"
)

// RepositoryManager vends repositories bound to either the pool or an open
// transaction, so services can compose several writes in one dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Links(db dbx.DBTX) links.Repository
	Inbox(db dbx.DBTX) inbox.Repository
	Certificates(db dbx.DBTX) certificates.Repository
	Procedures(db dbx.DBTX) procedures.Repository
}
