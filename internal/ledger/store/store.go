package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/database"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Expected column order: see selectPaymentColumns.
func scanPayment(s scanner) (*ledger.Payment, error) {
	var p ledger.Payment

	var typeStr, statusStr string

	if err := s.Scan(
		&p.ID, &p.PayerID, &p.RecipientID, &p.UnitID, &p.BuildingID, &p.RequestID,
		&p.Amount, &typeStr, &statusStr, &p.Description, &p.DueDate, &p.PaidDate,
		&p.Method, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Type = ledger.PaymentType(typeStr)
	p.Status = ledger.PaymentStatus(statusStr)

	return &p, nil
}

const selectPaymentColumns = `
	id, payer_id, recipient_id, unit_id, building_id, request_id,
	amount, type, status, description, due_date, paid_date,
	method, transaction_id, created_at, updated_at
`

// Expected column order: see selectRequestColumns.
func scanRequest(s scanner) (*ledger.Request, error) {
	var r ledger.Request

	var typeStr, priorityStr, statusStr string

	var history, documents, initialPayment []byte

	if err := s.Scan(
		&r.ID, &r.CreatorID, &typeStr, &r.Title, &r.Description, &priorityStr,
		&r.UnitID, &r.BuildingID, &statusStr, &history, &documents, &initialPayment,
		&r.PaymentID, &r.RejectionReason, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Type = ledger.RequestType(typeStr)
	r.Priority = ledger.Priority(priorityStr)
	r.Status = ledger.RequestStatus(statusStr)

	if err := json.Unmarshal(history, &r.History); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}

	if err := json.Unmarshal(documents, &r.Documents); err != nil {
		return nil, fmt.Errorf("decoding documents: %w", err)
	}

	if len(initialPayment) > 0 {
		if err := json.Unmarshal(initialPayment, &r.InitialPayment); err != nil {
			return nil, fmt.Errorf("decoding initial payment: %w", err)
		}
	}

	return &r, nil
}

const selectRequestColumns = `
	id, creator_id, type, title, description, priority,
	unit_id, building_id, status, history, documents, initial_payment,
	payment_id, rejection_reason, version, created_at, updated_at
`

func lockKey(key fmt.Stringer) int64 {
	h := fnv.New64a()
	h.Write([]byte(key.String()))

	return int64(h.Sum64())
}

// InsertPaymentIfAbsent serializes writers of the same business key on a transaction-scoped
// advisory lock. The partial unique index on payments catches anything that slips past it.
func (s *Store) InsertPaymentIfAbsent(ctx context.Context, p *ledger.Payment) (*ledger.Payment, bool, error) {
	key := p.Key()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey(key)); err != nil {
		return nil, false, fmt.Errorf("acquiring payment lock: %w", err)
	}

	existing, err := findLivePayment(ctx, dbTx, key)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		return existing, false, nil
	}

	query := `
		INSERT INTO payments (
			id, payer_id, recipient_id, unit_id, building_id, request_id,
			amount, type, status, description, due_date, due_day,
			method, transaction_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		p.ID, p.PayerID, p.RecipientID, p.UnitID, p.BuildingID, p.RequestID,
		p.Amount, p.Type, p.Status, p.Description, p.DueDate, key.DueDay,
		p.Method, p.TransactionID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("inserting payment: %w", err)
		}

		dbTx.Rollback()

		winner, findErr := findLivePayment(ctx, s.db, key)
		if findErr != nil {
			return nil, false, findErr
		}

		if winner == nil {
			return nil, false, fmt.Errorf("inserting payment: %w", err)
		}

		return winner, false, nil
	}

	if err := dbTx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing payment: %w", err)
	}

	return p, true, nil
}

func findLivePayment(ctx context.Context, q querier, key ledger.PaymentKey) (*ledger.Payment, error) {
	query := `SELECT ` + selectPaymentColumns + `
		FROM payments
		WHERE payer_id = $1
		  AND COALESCE(unit_id, '00000000-0000-0000-0000-000000000000'::uuid) = $2
		  AND amount = $3::numeric
		  AND type = $4
		  AND due_day = $5::date
		  AND status <> 'cancelled'
		ORDER BY created_at ASC
		LIMIT 1`

	p, err := scanPayment(q.QueryRowContext(ctx, query, key.PayerID, key.UnitID, key.Amount, key.Type, key.DueDay))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding duplicate payment: %w", err)
	}

	return p, nil
}

func (s *Store) InsertRequestIfAbsent(ctx context.Context, r *ledger.Request, since time.Time) (*ledger.Request, bool, error) {
	key := r.Key()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey(key)); err != nil {
		return nil, false, fmt.Errorf("acquiring request lock: %w", err)
	}

	findQuery := `SELECT ` + selectRequestColumns + `
		FROM requests
		WHERE creator_id = $1
		  AND COALESCE(unit_id, '00000000-0000-0000-0000-000000000000'::uuid) = $2
		  AND title = $3
		  AND type = $4
		  AND status NOT IN ('completed', 'rejected')
		  AND created_at > $5
		ORDER BY created_at DESC
		LIMIT 1`

	existing, err := scanRequest(dbTx.QueryRowContext(ctx, findQuery, key.CreatorID, key.UnitID, key.Title, key.Type, since))
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, fmt.Errorf("finding duplicate request: %w", err)
	}

	history, documents, initialPayment, err := encodeRequestJSON(r)
	if err != nil {
		return nil, false, err
	}

	insertQuery := `
		INSERT INTO requests (
			id, creator_id, type, title, description, priority, unit_id, building_id,
			status, history, documents, initial_payment, payment_id, rejection_reason,
			version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, NOW(), NOW())
		RETURNING version, created_at, updated_at
	`

	err = dbTx.QueryRowContext(ctx, insertQuery,
		r.ID, r.CreatorID, r.Type, r.Title, r.Description, r.Priority, r.UnitID, r.BuildingID,
		r.Status, history, documents, initialPayment, r.PaymentID, r.RejectionReason,
	).Scan(&r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("inserting request: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing request: %w", err)
	}

	return r, true, nil
}

func encodeRequestJSON(r *ledger.Request) (history, documents, initialPayment []byte, err error) {
	hist := r.History
	if hist == nil {
		hist = []ledger.StatusEntry{}
	}

	docs := r.Documents
	if docs == nil {
		docs = []ledger.Document{}
	}

	if history, err = json.Marshal(hist); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding history: %w", err)
	}

	if documents, err = json.Marshal(docs); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding documents: %w", err)
	}

	if r.InitialPayment != nil {
		if initialPayment, err = json.Marshal(r.InitialPayment); err != nil {
			return nil, nil, nil, fmt.Errorf("encoding initial payment: %w", err)
		}
	}

	return history, documents, initialPayment, nil
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	query := `SELECT ` + selectPaymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment %s: %w", id, ledger.ErrNotFound)
		}

		return nil, fmt.Errorf("getting payment: %w", err)
	}

	return p, nil
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (*ledger.Request, error) {
	query := `SELECT ` + selectRequestColumns + ` FROM requests WHERE id = $1`

	r, err := scanRequest(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", id, ledger.ErrNotFound)
		}

		return nil, fmt.Errorf("getting request: %w", err)
	}

	return r, nil
}

// where accumulates positional filter clauses.
type where struct {
	clauses string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses += fmt.Sprintf(" AND "+clause, len(w.args))
}

func (s *Store) ListPayments(ctx context.Context, filter ledger.PaymentFilter) ([]*ledger.Payment, error) {
	var w where

	if filter.PayerID != nil {
		w.add("payer_id = $%d", *filter.PayerID)
	}

	if filter.RecipientID != nil {
		w.add("recipient_id = $%d", *filter.RecipientID)
	}

	if filter.UnitID != nil {
		w.add("unit_id = $%d", *filter.UnitID)
	}

	if filter.BuildingID != nil {
		w.add("building_id = $%d", *filter.BuildingID)
	}

	if filter.RequestID != nil {
		w.add("request_id = $%d", *filter.RequestID)
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}

		w.add("status = ANY($%d)", statuses)
	}

	query := `SELECT ` + selectPaymentColumns + ` FROM payments WHERE TRUE` + w.clauses + ` ORDER BY due_date ASC`

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func collectPayments(rows *sql.Rows) ([]*ledger.Payment, error) {
	var payments []*ledger.Payment

	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}

		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment rows: %w", err)
	}

	return payments, nil
}

func (s *Store) ListRequests(ctx context.Context, filter ledger.RequestFilter) ([]*ledger.Request, error) {
	var w where

	if filter.CreatorID != nil {
		w.add("creator_id = $%d", *filter.CreatorID)
	}

	if filter.UnitID != nil {
		w.add("unit_id = $%d", *filter.UnitID)
	}

	if filter.BuildingID != nil {
		w.add("building_id = $%d", *filter.BuildingID)
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}

		w.add("status = ANY($%d)", statuses)
	}

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, typ := range filter.Types {
			types[i] = string(typ)
		}

		w.add("type = ANY($%d)", types)
	}

	query := `SELECT ` + selectRequestColumns + ` FROM requests WHERE TRUE` + w.clauses + ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []*ledger.Request

	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}

		requests = append(requests, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating request rows: %w", err)
	}

	return requests, nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, p *ledger.Payment, from []ledger.PaymentStatus) error {
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	query := `
		UPDATE payments
		SET status = $1, paid_date = $2, method = $3, transaction_id = $4, updated_at = NOW()
		WHERE id = $5 AND status = ANY($6)
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		p.Status, p.PaidDate, p.Method, p.TransactionID, p.ID, statuses,
	).Scan(&p.UpdatedAt)
	if err == nil {
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("updating payment status: %w", err)
	}

	if _, err := s.GetPayment(ctx, p.ID); err != nil {
		return err
	}

	return fmt.Errorf("%w: payment %s is no longer in %v", ledger.ErrInvalidTransition, p.ID, statuses)
}

func (s *Store) UpdateRequest(ctx context.Context, r *ledger.Request) error {
	history, documents, initialPayment, err := encodeRequestJSON(r)
	if err != nil {
		return err
	}

	query := `
		UPDATE requests
		SET status = $1, history = $2, documents = $3, initial_payment = $4, payment_id = $5,
		    rejection_reason = $6, priority = $7, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
		RETURNING version
	`

	err = s.db.QueryRowContext(ctx, query,
		r.Status, history, documents, initialPayment, r.PaymentID,
		r.RejectionReason, r.Priority, r.UpdatedAt, r.ID, r.Version,
	).Scan(&r.Version)
	if err == nil {
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("updating request: %w", err)
	}

	if _, err := s.GetRequest(ctx, r.ID); err != nil {
		return err
	}

	return fmt.Errorf("%w: request %s changed since version %d", ledger.ErrVersionConflict, r.ID, r.Version)
}

// MarkOverdue is a single conditional statement, so concurrent sweeps each see only the
// rows they moved themselves.
func (s *Store) MarkOverdue(ctx context.Context, now time.Time) ([]*ledger.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'overdue', updated_at = NOW()
		WHERE status = 'pending' AND due_date < $1
		RETURNING ` + selectPaymentColumns

	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("marking payments overdue: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}
