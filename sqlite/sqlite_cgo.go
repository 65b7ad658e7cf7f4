//go:build cgo

package sqlite

import (
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const defaultDriverName = "sqlite3"

func isCgoDuplicate(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
