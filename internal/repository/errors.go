// Package repository holds the MySQL and in-memory stores behind the
// booking engine.  Stores report missing rows with model.ErrNotFound so the
// service layer can match them without knowing the backend.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an insert collides with an existing row,
// e.g. a duplicate booking id or token hash.  Handlers translate this into
// an internal error since both values are generated server-side.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is MySQL's duplicate-key error (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
