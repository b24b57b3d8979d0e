package accountdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billingkit/pkg/reconcile"
)

// Store implements reconcile.AccountStore on top of PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an account store. Panics on a nil pool to fail fast
// during initialization.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("accountdb: connection pool is required")
	}
	return &Store{pool: pool}
}

// AccountByCustomer resolves the local account binding for a provider
// customer. The binding row itself carries uid and email so resolution keeps
// working after the account record has been deleted.
func (s *Store) AccountByCustomer(ctx context.Context, customerID string) (*reconcile.Account, error) {
	var acct reconcile.Account
	err := s.pool.QueryRow(ctx,
		`SELECT uid, email FROM account_customers WHERE customer_id = $1`,
		customerID,
	).Scan(&acct.UID, &acct.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reconcile.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query customer binding: %w", err)
	}
	return &acct, nil
}

// AccountByEmail resolves an account by its primary email, case-insensitive.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*reconcile.Account, error) {
	var acct reconcile.Account
	err := s.pool.QueryRow(ctx,
		`SELECT uid, email FROM accounts WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email),
	).Scan(&acct.UID, &acct.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reconcile.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account by email: %w", err)
	}
	return &acct, nil
}

// AccountByUID fetches the account record itself.
func (s *Store) AccountByUID(ctx context.Context, uid uuid.UUID) (*reconcile.Account, error) {
	var acct reconcile.Account
	err := s.pool.QueryRow(ctx,
		`SELECT uid, email FROM accounts WHERE uid = $1`,
		uid,
	).Scan(&acct.UID, &acct.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reconcile.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account by uid: %w", err)
	}
	return &acct, nil
}

// BindCustomer persists the uid -> provider customer binding, copying the
// account's current email into the binding row. Rebinding the same customer
// id updates the existing row, which keeps the operation idempotent under
// webhook redelivery.
func (s *Store) BindCustomer(ctx context.Context, uid uuid.UUID, customerID string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO account_customers (customer_id, uid, email)
		 SELECT $1, a.uid, a.email FROM accounts a WHERE a.uid = $2
		 ON CONFLICT (customer_id) DO UPDATE SET uid = EXCLUDED.uid, email = EXCLUDED.email`,
		customerID, uid,
	)
	if err != nil {
		return fmt.Errorf("bind customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reconcile.ErrAccountNotFound
	}
	return nil
}

// Devices lists the push-registered devices for an account.
func (s *Store) Devices(ctx context.Context, uid uuid.UUID) ([]reconcile.Device, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, push_endpoint FROM devices WHERE uid = $1 ORDER BY created_at`,
		uid,
	)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var devices []reconcile.Device
	for rows.Next() {
		var d reconcile.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.PushEndpoint); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}
