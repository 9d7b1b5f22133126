package dummydb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/feedback"
	"github.com/oraclelc/backend/core/store"
	"github.com/oraclelc/backend/core/user"
)

type (
	DB struct {
		user     *userTable
		item     *itemTable
		request  *requestTable
		payment  *paymentTable
		feedback *feedbackTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	itemTable struct {
		sync.RWMutex
		table map[string]*store.StoreItem
	}

	requestTable struct {
		sync.RWMutex
		table map[string]*store.StoreRequest
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*store.SupplierPayment
	}

	feedbackTable struct {
		sync.RWMutex
		table map[string]*feedback.Feedback
	}
)

var _ core.DB = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		item:     &itemTable{table: make(map[string]*store.StoreItem)},
		request:  &requestTable{table: make(map[string]*store.StoreRequest)},
		payment:  &paymentTable{table: make(map[string]*store.SupplierPayment)},
		feedback: &feedbackTable{table: make(map[string]*feedback.Feedback)},
	}
	return db, nil
}

// BeginTx returns a no-op transactor; the dummy repositories apply writes
// directly and ignore the exec argument.
func (db *DB) BeginTx(context.Context, *sql.TxOptions) (core.DBTransactor, error) {
	return noopTx{}, nil
}

func (db *DB) Exec(string, ...interface{}) (sql.Result, error) { return nil, nil }
func (db *DB) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (db *DB) Query(string, ...interface{}) (*sql.Rows, error) { return nil, nil }
func (db *DB) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (db *DB) QueryRow(string, ...interface{}) *sql.Row                          { return nil }
func (db *DB) QueryRowContext(context.Context, string, ...interface{}) *sql.Row  { return nil }

type noopTx struct{}

var _ core.DBTransactor = noopTx{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

func (noopTx) Exec(string, ...interface{}) (sql.Result, error) { return nil, nil }
func (noopTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (noopTx) Query(string, ...interface{}) (*sql.Rows, error) { return nil, nil }
func (noopTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (noopTx) QueryRow(string, ...interface{}) *sql.Row                         { return nil }
func (noopTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
