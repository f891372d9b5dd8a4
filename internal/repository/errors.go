// Package repository defines the data access layer.  Sentinel errors
// declared here allow higher layers to distinguish failure scenarios
// without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/shop-api/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when an insert collides with an
// existing username.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrDuplicateEmail is returned when an insert collides with an existing
// email address.
var ErrDuplicateEmail = errors.New("email already exists")

// Authorizer inspects the current state of a row inside the mutating
// transaction.  A non-nil error aborts the mutation and is returned to the
// caller unchanged.
type Authorizer func(current model.Product) error

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a unique key violation and, if so,
// the server message naming the violated key.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return me.Message, true
	}
	return "", false
}

// userDuplicate maps a users-table unique violation to its sentinel.
func userDuplicate(err error) error {
	msg, ok := duplicateKey(err)
	if !ok {
		return nil
	}
	if strings.Contains(msg, "uq_users_email") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUsername
}
