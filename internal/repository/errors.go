// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow services to distinguish between
// different failure scenarios and translate them into API errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row addressed by id or key does not exist
// (or is soft-deleted).
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when users.email is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrGoogleIDExists is returned when users.google_id is already linked.
var ErrGoogleIDExists = errors.New("google account already linked")

// ErrTokenNotActive is returned when a refresh token record was revoked or
// expired before the caller could consume it.
var ErrTokenNotActive = errors.New("refresh token not active")

// ErrConflict is returned when a write collides with a unique key that has
// no more specific sentinel.
var ErrConflict = errors.New("conflict")

const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a MySQL duplicate-entry error and, if
// so, the message naming the violated key.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return strings.ToLower(me.Message), true
	}
	return "", false
}
