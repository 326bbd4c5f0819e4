package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"boxoffice/entities"
	"boxoffice/message/event"
	"boxoffice/message/outbox"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ITicketRepository interface {
	GetByID(ctx context.Context, ticketID uuid.UUID) (entities.Ticket, error)
	Revoke(ctx context.Context, ticketID uuid.UUID, reason string) error
	Refund(ctx context.Context, ticketID uuid.UUID) error
}

type TicketRepository struct {
	db *DB
}

func NewTicketRepository(db *DB) TicketRepository {
	if db == nil {
		panic("db is nil")
	}
	return TicketRepository{
		db: db,
	}
}

const ticketColumns = `
	ticket_id, event_id, ticket_type_id, buyer_id, reservation_id,
	qr_secret, qr_mode, qr_rotation_nonce, status, purchase_price, currency, payment_ref, created_at`

func (r TicketRepository) GetByID(ctx context.Context, ticketID uuid.UUID) (entities.Ticket, error) {
	var ticket entities.Ticket
	err := r.db.Conn.GetContext(ctx, &ticket,
		`SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Ticket{}, entities.ErrTicketNotFound
	}
	if err != nil {
		return entities.Ticket{}, fmt.Errorf("could not get ticket: %w", err)
	}
	return ticket, nil
}

// Revoke is the fraud collaborator's transition. Only an active ticket can
// be revoked; every terminal status is immutable.
func (r TicketRepository) Revoke(ctx context.Context, ticketID uuid.UUID, reason string) error {
	return r.terminate(ctx, ticketID, entities.TicketRevoked, func(ctx context.Context, eventBus eventPublisher) error {
		return eventBus.Publish(ctx, entities.TicketRevoked_v1{
			Header:   entities.NewEventHeader(),
			TicketID: ticketID,
			Reason:   reason,
		})
	})
}

func (r TicketRepository) Refund(ctx context.Context, ticketID uuid.UUID) error {
	return r.terminate(ctx, ticketID, entities.TicketRefunded, func(ctx context.Context, eventBus eventPublisher) error {
		return eventBus.Publish(ctx, entities.TicketRefunded_v1{
			Header:   entities.NewEventHeader(),
			TicketID: ticketID,
		})
	})
}

type eventPublisher interface {
	Publish(ctx context.Context, event any) error
}

func (r TicketRepository) terminate(
	ctx context.Context,
	ticketID uuid.UUID,
	status entities.TicketStatus,
	publish func(ctx context.Context, eventBus eventPublisher) error,
) error {
	return updateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tickets SET status = $1 WHERE ticket_id = $2 AND status = 'active'`,
			status, ticketID,
		)
		if err != nil {
			return fmt.Errorf("could not update ticket status: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not read update result: %w", err)
		}
		if affected == 0 {
			var exists bool
			err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_id = $1)`, ticketID)
			if err != nil {
				return fmt.Errorf("could not check ticket existence: %w", err)
			}
			if !exists {
				return entities.ErrTicketNotFound
			}
			return entities.ErrTicketNotActive
		}

		outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
		if err != nil {
			return fmt.Errorf("could not create outbox publisher: %w", err)
		}
		return publish(ctx, event.NewBus(outboxPublisher))
	})
}

func insertTicketInTx(ctx context.Context, tx *sqlx.Tx, ticket entities.Ticket) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO
		    tickets (ticket_id, event_id, ticket_type_id, buyer_id, reservation_id,
		             qr_secret, qr_mode, qr_rotation_nonce, status, purchase_price, currency, payment_ref)
		VALUES
		    (:ticket_id, :event_id, :ticket_type_id, :buyer_id, :reservation_id,
		     :qr_secret, :qr_mode, :qr_rotation_nonce, :status, :purchase_price, :currency, :payment_ref)`,
		ticket,
	)
	if isErrorUniqueViolation(err) {
		// last-resort barrier: the payment ref already bought a ticket
		return entities.ErrPaymentProcessed
	}
	if err != nil {
		return fmt.Errorf("could not insert ticket: %w", err)
	}
	return nil
}

func ticketByPaymentRefInTx(ctx context.Context, tx *sqlx.Tx, paymentRef string) (entities.Ticket, error) {
	var ticket entities.Ticket
	err := tx.GetContext(ctx, &ticket,
		`SELECT `+ticketColumns+` FROM tickets WHERE payment_ref = $1`, paymentRef)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Ticket{}, entities.ErrTicketNotFound
	}
	if err != nil {
		return entities.Ticket{}, fmt.Errorf("could not get ticket by payment ref: %w", err)
	}
	return ticket, nil
}
