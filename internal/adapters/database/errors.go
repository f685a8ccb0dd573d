package database

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/baseorm/baseorm/internal/core/errs"
)

// classify maps an engine error onto IntegrityError or ConnectionError
// and attaches the statement.
func classify(op, query string, args []any, err error) error {
	kind := errs.ErrConnection
	if isConstraint(err) {
		kind = errs.ErrIntegrity
	}
	return errs.Wrap(kind, op, err).WithStatement(query, args)
}

func isConstraint(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.Code == sqlite3.ErrConstraint
	}
	var pureErr interface{ Code() int }
	if errors.As(err, &pureErr) {
		return pureErr.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}
