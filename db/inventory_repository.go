package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"boxoffice/entities"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type IInventoryRepository interface {
	CreateLedger(ctx context.Context, ledger entities.InventoryLedger, mode entities.QRMode) error
	Get(ctx context.Context, eventID, ticketTypeID uuid.UUID) (entities.InventoryLedger, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entities.InventoryLedger, error)
	Reserve(ctx context.Context, eventID, ticketTypeID uuid.UUID, quantity int) error
	Release(ctx context.Context, eventID, ticketTypeID uuid.UUID, quantity int) error
	CommitSale(ctx context.Context, eventID, ticketTypeID uuid.UUID, quantity int) error
}

// InventoryRepository owns the per-(event, ticket type) capacity counters.
// Every mutation is a single conditional UPDATE whose WHERE clause re-states
// the invariant, so two racing callers resolve at the database: one commits,
// the other sees zero rows affected.
type InventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) InventoryRepository {
	if db == nil {
		panic("db is nil")
	}
	return InventoryRepository{
		db: db,
	}
}

func (r InventoryRepository) CreateLedger(ctx context.Context, ledger entities.InventoryLedger, mode entities.QRMode) error {
	_, err := r.db.Conn.ExecContext(ctx, `
		INSERT INTO
		    inventory_ledgers (event_id, ticket_type_id, total_capacity, sold_count, reserved_count, qr_mode)
		VALUES
		    ($1, $2, $3, 0, 0, $4)
		ON CONFLICT (event_id, ticket_type_id) DO NOTHING`,
		ledger.EventID, ledger.TicketTypeID, ledger.TotalCapacity, mode,
	)
	if err != nil {
		return fmt.Errorf("could not create inventory ledger: %w", err)
	}
	return nil
}

func (r InventoryRepository) Get(ctx context.Context, eventID, ticketTypeID uuid.UUID) (entities.InventoryLedger, error) {
	var ledger entities.InventoryLedger
	err := r.db.Conn.GetContext(ctx, &ledger, `
		SELECT
		    event_id, ticket_type_id, total_capacity, sold_count, reserved_count
		FROM
		    inventory_ledgers
		WHERE
		    event_id = $1 AND ticket_type_id = $2
	`, eventID, ticketTypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.InventoryLedger{}, entities.ErrLedgerNotFound
	}
	if err != nil {
		return entities.InventoryLedger{}, fmt.Errorf("could not get inventory ledger: %w", err)
	}
	return ledger, nil
}

func (r InventoryRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entities.InventoryLedger, error) {
	var ledgers []entities.InventoryLedger
	err := r.db.Conn.SelectContext(ctx, &ledgers, `
		SELECT
		    event_id, ticket_type_id, total_capacity, sold_count, reserved_count
		FROM
		    inventory_ledgers
		WHERE
		    event_id = $1
		ORDER BY ticket_type_id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("could not list inventory ledgers: %w", err)
	}
	return ledgers, nil
}

func (r InventoryRepository) Reserve(ctx context.Context, eventID, ticketTypeID uuid.UUID, quantity int) error {
	return reserveInventory(ctx, r.db.Conn, eventID, ticketTypeID, quantity)
}

func (r InventoryRepository) Release(ctx context.Context, eventID, ticketTypeID uuid.UUID, quantity int) error {
	return releaseInventory(ctx, r.db.Conn, eventID, ticketTypeID, quantity)
}

func (r InventoryRepository) CommitSale(ctx context.Context, eventID, ticketTypeID uuid.UUID, quantity int) error {
	return commitInventorySale(ctx, r.db.Conn, eventID, ticketTypeID, quantity)
}

// reserveInventory increments reserved_count only if the post-increment state
// still satisfies sold + reserved <= capacity. Zero rows affected means the
// capacity ran out (or the ledger does not exist); there is no retry, the
// attempt is terminal.
func reserveInventory(ctx context.Context, ex sqlx.ExtContext, eventID, ticketTypeID uuid.UUID, quantity int) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE inventory_ledgers
		SET reserved_count = reserved_count + $1
		WHERE event_id = $2 AND ticket_type_id = $3
		  AND sold_count + reserved_count + $1 <= total_capacity`,
		quantity, eventID, ticketTypeID,
	)
	if err != nil {
		if isErrorCheckViolation(err) {
			return entities.ErrLedgerCorrupt
		}
		return fmt.Errorf("could not reserve inventory: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read reserve result: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := sqlx.GetContext(ctx, ex, &exists, `
			SELECT EXISTS (SELECT 1 FROM inventory_ledgers WHERE event_id = $1 AND ticket_type_id = $2)`,
			eventID, ticketTypeID)
		if err != nil {
			return fmt.Errorf("could not check ledger existence: %w", err)
		}
		if !exists {
			return entities.ErrLedgerNotFound
		}
		return entities.ErrInsufficientCapacity
	}
	return nil
}

// releaseInventory gives reserved seats back. A zero-row result means the
// counters no longer account for the holds being released, which is a
// corruption signal, not a normal conflict.
func releaseInventory(ctx context.Context, ex sqlx.ExtContext, eventID, ticketTypeID uuid.UUID, quantity int) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE inventory_ledgers
		SET reserved_count = reserved_count - $1
		WHERE event_id = $2 AND ticket_type_id = $3
		  AND reserved_count >= $1`,
		quantity, eventID, ticketTypeID,
	)
	if err != nil {
		if isErrorCheckViolation(err) {
			return entities.ErrLedgerCorrupt
		}
		return fmt.Errorf("could not release inventory: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read release result: %w", err)
	}
	if affected == 0 {
		return entities.ErrLedgerCorrupt
	}
	return nil
}

// commitInventorySale moves quantity from reserved to sold in one statement.
func commitInventorySale(ctx context.Context, ex sqlx.ExtContext, eventID, ticketTypeID uuid.UUID, quantity int) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE inventory_ledgers
		SET reserved_count = reserved_count - $1,
		    sold_count = sold_count + $1
		WHERE event_id = $2 AND ticket_type_id = $3
		  AND reserved_count >= $1`,
		quantity, eventID, ticketTypeID,
	)
	if err != nil {
		if isErrorCheckViolation(err) {
			return entities.ErrLedgerCorrupt
		}
		return fmt.Errorf("could not commit inventory sale: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read commit result: %w", err)
	}
	if affected == 0 {
		return entities.ErrLedgerCorrupt
	}
	return nil
}

func ledgerQRMode(ctx context.Context, ex sqlx.ExtContext, eventID, ticketTypeID uuid.UUID) (entities.QRMode, error) {
	var mode string
	err := sqlx.GetContext(ctx, ex, &mode, `
		SELECT qr_mode FROM inventory_ledgers WHERE event_id = $1 AND ticket_type_id = $2`,
		eventID, ticketTypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", entities.ErrLedgerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("could not get ledger qr mode: %w", err)
	}
	return entities.QRMode(strings.TrimSpace(mode)), nil
}
