package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"

	"boxoffice/entities"
	"boxoffice/message/event"
	"boxoffice/message/outbox"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ICheckoutRepository interface {
	ApplyPayment(ctx context.Context, payment entities.PaymentReceived_v1) (entities.CheckoutResult, error)
}

// CheckoutRepository converts a paid reservation into a ticket and a payment
// record. Two independent idempotency barriers protect it from redelivered
// payment webhooks: the webhook ledger keyed by payment event id, and the
// reservation's terminal consumed status combined with the unique payment
// ref on tickets.
type CheckoutRepository struct {
	db         *DB
	feePercent decimal.Decimal
}

func NewCheckoutRepository(db *DB, feePercent decimal.Decimal) CheckoutRepository {
	if db == nil {
		panic("db is nil")
	}
	return CheckoutRepository{
		db:         db,
		feePercent: feePercent,
	}
}

func (r CheckoutRepository) ApplyPayment(ctx context.Context, payment entities.PaymentReceived_v1) (entities.CheckoutResult, error) {
	var result entities.CheckoutResult
	// rejection is recorded in the webhook ledger and then surfaced to the
	// caller after the transaction commits, so redeliveries replay the
	// recorded outcome instead of reprocessing.
	var rejection error

	err := updateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		inserted, err := insertWebhookRecord(ctx, tx, payment.PaymentEventID, payment.ReservationID)
		if err != nil {
			return err
		}
		if !inserted {
			record, err := getWebhookRecord(ctx, tx, payment.PaymentEventID)
			if err != nil {
				return err
			}
			result = entities.CheckoutResult{AlreadyProcessed: true}
			if record.TicketID != nil {
				result.TicketID = *record.TicketID
			}
			return nil
		}

		reservation, err := consumeReservationInTx(ctx, tx, payment.ReservationID)
		switch {
		case err == nil:
			// first successful consumption, proceed to issue the ticket
		case errors.Is(err, entities.ErrAlreadyConsumed):
			// a previous delivery with a different payment event id may have
			// already produced the ticket for this payment ref
			ticket, lookupErr := ticketByPaymentRefInTx(ctx, tx, payment.PaymentRef)
			if lookupErr == nil {
				result = entities.CheckoutResult{TicketID: ticket.TicketID, AlreadyProcessed: true}
				return finishWebhookRecord(ctx, tx, payment.PaymentEventID, entities.WebhookResultTicketIssued, &ticket.TicketID)
			}
			if !errors.Is(lookupErr, entities.ErrTicketNotFound) {
				return lookupErr
			}
			rejection = entities.ErrPaymentMismatch
			return finishWebhookRecord(ctx, tx, payment.PaymentEventID, entities.WebhookResultRejected, nil)
		case errors.Is(err, entities.ErrReservationExpired), errors.Is(err, entities.ErrReservationNotFound):
			rejection = err
			return finishWebhookRecord(ctx, tx, payment.PaymentEventID, entities.WebhookResultRejected, nil)
		default:
			return err
		}

		mode, err := ledgerQRMode(ctx, tx, reservation.EventID, reservation.TicketTypeID)
		if err != nil {
			return err
		}

		secret, err := newTicketSecret()
		if err != nil {
			return err
		}

		amount := decimal.New(payment.AmountCents, -2)
		fee, payout := entities.SplitPayment(amount, r.feePercent)

		ticket := entities.Ticket{
			TicketID:        uuid.New(),
			EventID:         reservation.EventID,
			TicketTypeID:    reservation.TicketTypeID,
			BuyerID:         reservation.UserID,
			ReservationID:   reservation.ReservationID,
			QRSecret:        secret,
			QRMode:          mode,
			QRRotationNonce: 0,
			Status:          entities.TicketActive,
			PurchasePrice:   amount,
			Currency:        payment.Currency,
			PaymentRef:      payment.PaymentRef,
		}
		if err := insertTicketInTx(ctx, tx, ticket); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO
			    payments (payment_id, ticket_id, payment_ref, amount, platform_fee, organizer_payout, currency)
			VALUES
			    ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), ticket.TicketID, payment.PaymentRef, amount, fee, payout, payment.Currency,
		)
		if err != nil {
			return fmt.Errorf("could not insert payment: %w", err)
		}

		err = finishWebhookRecord(ctx, tx, payment.PaymentEventID, entities.WebhookResultTicketIssued, &ticket.TicketID)
		if err != nil {
			return err
		}

		outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
		if err != nil {
			return fmt.Errorf("could not create outbox publisher: %w", err)
		}
		err = event.NewBus(outboxPublisher).Publish(ctx, entities.TicketIssued_v1{
			Header:        entities.NewEventHeaderWithIdempotencyKey(payment.PaymentEventID),
			TicketID:      ticket.TicketID,
			EventID:       ticket.EventID,
			BuyerID:       ticket.BuyerID,
			ReservationID: ticket.ReservationID,
			PaymentRef:    ticket.PaymentRef,
			PurchasePrice: amount,
			Currency:      ticket.Currency,
		})
		if err != nil {
			return fmt.Errorf("could not publish TicketIssued_v1: %w", err)
		}

		result = entities.CheckoutResult{TicketID: ticket.TicketID}
		return nil
	})
	if err != nil {
		return entities.CheckoutResult{}, err
	}
	if rejection != nil {
		return entities.CheckoutResult{}, rejection
	}
	return result, nil
}

// insertWebhookRecord is the first idempotency gate. A concurrent delivery
// of the same payment event id blocks on the insert until the winner
// commits, then observes the conflict and replays the recorded outcome.
func insertWebhookRecord(ctx context.Context, tx *sqlx.Tx, paymentEventID string, reservationID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO webhook_ledger (payment_event_id, reservation_id, result)
		VALUES ($1, $2, $3)
		ON CONFLICT (payment_event_id) DO NOTHING`,
		paymentEventID, reservationID, entities.WebhookResultReceived,
	)
	if err != nil {
		return false, fmt.Errorf("could not insert webhook record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not read webhook insert result: %w", err)
	}
	return affected == 1, nil
}

func getWebhookRecord(ctx context.Context, tx *sqlx.Tx, paymentEventID string) (entities.WebhookRecord, error) {
	var record entities.WebhookRecord
	err := tx.GetContext(ctx, &record, `
		SELECT payment_event_id, reservation_id, result, ticket_id, processed_at
		FROM webhook_ledger
		WHERE payment_event_id = $1`,
		paymentEventID,
	)
	if err != nil {
		return entities.WebhookRecord{}, fmt.Errorf("could not get webhook record: %w", err)
	}
	return record, nil
}

func finishWebhookRecord(ctx context.Context, tx *sqlx.Tx, paymentEventID string, result entities.WebhookResult, ticketID *uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE webhook_ledger
		SET result = $1, ticket_id = $2, processed_at = now()
		WHERE payment_event_id = $3`,
		result, ticketID, paymentEventID,
	)
	if err != nil {
		return fmt.Errorf("could not record webhook result: %w", err)
	}
	return nil
}

func newTicketSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("could not generate ticket secret: %w", err)
	}
	return secret, nil
}
