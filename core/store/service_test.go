package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"

	"github.com/oraclelc/backend/core"
)

type stubExecutor struct{}

func (stubExecutor) Exec(string, ...interface{}) (sql.Result, error) { return nil, nil }
func (stubExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (stubExecutor) Query(string, ...interface{}) (*sql.Rows, error) { return nil, nil }
func (stubExecutor) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (stubExecutor) QueryRow(string, ...interface{}) *sql.Row                         { return nil }
func (stubExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

// recordingTx records the transaction outcome; Rollback after Commit is the
// deferred no-op, not a rollback.
type recordingTx struct {
	stubExecutor
	committed  bool
	rolledBack bool
}

func (tx *recordingTx) Commit() error { tx.committed = true; return nil }

func (tx *recordingTx) Rollback() error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type recordingDB struct {
	stubExecutor
	tx *recordingTx
}

func (db *recordingDB) BeginTx(context.Context, *sql.TxOptions) (core.DBTransactor, error) {
	return db.tx, nil
}

// receiveRepo fakes just the repository calls Receive makes.
type receiveRepo struct {
	Repository

	request       StoreRequest
	transitionRes int64
	incrementErr  error

	transitionExec []core.DBExecutor
	incrementExec  []core.DBExecutor
}

func (r *receiveRepo) GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (StoreRequest, error) {
	if r.request.ID != id {
		return StoreRequest{}, ErrRequestNotFound
	}
	return r.request, nil
}

func (r *receiveRepo) TransitionRequest(ctx context.Context, id string, from, to RequestStatus, supplierID string, exec ...core.DBExecutor) (int64, error) {
	r.transitionExec = exec
	return r.transitionRes, nil
}

func (r *receiveRepo) IncrementItemQuantity(ctx context.Context, itemID string, by int, exec ...core.DBExecutor) error {
	r.incrementExec = exec
	return r.incrementErr
}

func TestService_Receive_commitsBothWrites(t *testing.T) {
	tx := &recordingTx{}
	repo := &receiveRepo{
		request:       StoreRequest{ID: "req1", ItemID: "item1", QuantityRequested: 5, Status: RequestApproved},
		transitionRes: 1,
	}
	svc := NewService(&recordingDB{tx: tx}, repo, nil, nil, nil)

	req, err := svc.Receive(context.Background(), "req1")
	if err != nil {
		t.Fatalf("Receive() failed: %v", err)
	}
	if req.Status != RequestReceived {
		t.Errorf("Status = %s; want %s", req.Status, RequestReceived)
	}
	if !tx.committed {
		t.Error("transaction was never committed")
	}
	if tx.rolledBack {
		t.Error("transaction was rolled back after commit")
	}
	// both writes must run on the same transaction
	if len(repo.transitionExec) != 1 || repo.transitionExec[0] != core.DBExecutor(tx) {
		t.Error("TransitionRequest did not run on the receive transaction")
	}
	if len(repo.incrementExec) != 1 || repo.incrementExec[0] != core.DBExecutor(tx) {
		t.Error("IncrementItemQuantity did not run on the receive transaction")
	}
}

func TestService_Receive_rollsBackOnStockFailure(t *testing.T) {
	tx := &recordingTx{}
	repo := &receiveRepo{
		request:       StoreRequest{ID: "req1", ItemID: "item1", QuantityRequested: 5, Status: RequestApproved},
		transitionRes: 1,
		incrementErr:  errors.New("stock write failed"),
	}
	svc := NewService(&recordingDB{tx: tx}, repo, nil, nil, nil)

	if _, err := svc.Receive(context.Background(), "req1"); err == nil {
		t.Fatal("Receive() swallowed the stock failure")
	}
	if tx.committed {
		t.Error("transaction was committed despite the stock failure")
	}
	if !tx.rolledBack {
		t.Error("transaction was not rolled back; the status change would persist without the stock credit")
	}
}

func TestService_Receive_lostRaceRollsBack(t *testing.T) {
	tx := &recordingTx{}
	repo := &receiveRepo{
		request:       StoreRequest{ID: "req1", ItemID: "item1", QuantityRequested: 5, Status: RequestApproved},
		transitionRes: 0, // a concurrent receive got there first
	}
	svc := NewService(&recordingDB{tx: tx}, repo, nil, nil, nil)

	_, err := svc.Receive(context.Background(), "req1")
	if errors.Cause(err) != ErrRequestNotApproved {
		t.Fatalf("Receive() error = %v; want %v", err, ErrRequestNotApproved)
	}
	if tx.committed {
		t.Error("transaction was committed despite losing the race")
	}
	if !tx.rolledBack {
		t.Error("transaction was not rolled back")
	}
	if repo.incrementExec != nil {
		t.Error("IncrementItemQuantity ran after the transition matched no row")
	}
}

func TestService_Receive_rejectsWrongStatus(t *testing.T) {
	for _, status := range []RequestStatus{RequestPending, RequestRejected, RequestReceived} {
		tx := &recordingTx{}
		repo := &receiveRepo{request: StoreRequest{ID: "req1", Status: status}}
		svc := NewService(&recordingDB{tx: tx}, repo, nil, nil, nil)

		if _, err := svc.Receive(context.Background(), "req1"); errors.Cause(err) != ErrRequestNotApproved {
			t.Errorf("Receive() on %s request: error = %v; want %v", status, err, ErrRequestNotApproved)
		}
		if tx.committed || tx.rolledBack {
			t.Errorf("Receive() on %s request started a transaction", status)
		}
	}
}
