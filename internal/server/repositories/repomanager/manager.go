// Package repomanager provides the factory that hands out repositories
// bound to either a plain connection or a transaction handle.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/lockouts"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/users"
)

// RepositoryManager builds repositories over the given handle. Passing a
// transaction handle from dbx.WithTx makes several repository calls one
// atomic unit (token rotation relies on this).
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Lockouts(db dbx.DBTX) lockouts.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
