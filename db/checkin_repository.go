package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boxoffice/entities"
	"boxoffice/message/event"
	"boxoffice/message/outbox"
	"boxoffice/qrtoken"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CheckInRequest struct {
	TicketID  uuid.UUID `json:"ticket_id"`
	ScannerID string    `json:"scanner_id"`
	DeviceID  string    `json:"device_id"`
	Token     string    `json:"token"`
}

type ICheckinRepository interface {
	CheckIn(ctx context.Context, req CheckInRequest) (entities.CheckInDecision, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]entities.CheckInLogEntry, error)
}

// CheckinRepository decides admission. The whole decision runs in one
// transaction with the ticket row locked: token verification for the
// ticket's mode, replay bookkeeping, the single guarded active -> used flip,
// and the audit log append. Every scan attempt is logged, rejections
// included; the log is the fraud trail, not a success record.
type CheckinRepository struct {
	db        *DB
	validator qrtoken.Validator
}

func NewCheckinRepository(db *DB, validator qrtoken.Validator) CheckinRepository {
	if db == nil {
		panic("db is nil")
	}
	return CheckinRepository{
		db:        db,
		validator: validator,
	}
}

func (r CheckinRepository) CheckIn(ctx context.Context, req CheckInRequest) (entities.CheckInDecision, error) {
	token, err := qrtoken.Parse(req.Token)
	if err != nil {
		return r.recordRejection(ctx, req, entities.CheckInInvalid, err.Error())
	}
	if token.TicketID != req.TicketID {
		return r.recordRejection(ctx, req, entities.CheckInInvalid, "token does not belong to this ticket")
	}

	decision := entities.CheckInDecision{TicketID: req.TicketID, Result: entities.CheckInValid}
	txErr := updateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var ticket entities.Ticket
		err := tx.GetContext(ctx, &ticket,
			`SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1 FOR UPDATE`, req.TicketID)
		if errors.Is(err, sql.ErrNoRows) {
			decision.Result = entities.CheckInInvalid
			decision.Reason = "ticket not found"
			return appendCheckInLogInTx(ctx, tx, req, &decision)
		}
		if err != nil {
			return fmt.Errorf("could not lock ticket: %w", err)
		}

		// step 1: token validation for the ticket's fixed mode, including
		// replay bookkeeping; any failure short-circuits with no state change
		if ok, err := r.validateToken(ctx, tx, ticket, token, &decision); err != nil {
			return err
		} else if !ok {
			return appendCheckInLogInTx(ctx, tx, req, &decision)
		}

		// step 2: status check, exactly once under the row lock
		if ticket.Status != entities.TicketActive {
			r.mapTerminalStatus(ctx, tx, ticket, &decision)
			return appendCheckInLogInTx(ctx, tx, req, &decision)
		}

		// step 3: the guarded flip defends against a raced read even though
		// the row lock should have serialized us
		res, err := tx.ExecContext(ctx,
			`UPDATE tickets SET status = 'used' WHERE ticket_id = $1 AND status = 'active'`,
			ticket.TicketID,
		)
		if err != nil {
			return fmt.Errorf("could not mark ticket used: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not read check-in result: %w", err)
		}
		if affected == 0 {
			decision.Result = entities.CheckInAlreadyUsed
			decision.Reason = "ticket already used"
			decision.WinningScan = r.winningScanInTx(ctx, tx, ticket.TicketID)
			return appendCheckInLogInTx(ctx, tx, req, &decision)
		}

		// step 4: the log row is appended for successes too
		return appendCheckInLogInTx(ctx, tx, req, &decision)
	})
	if txErr != nil {
		return entities.CheckInDecision{}, txErr
	}
	return decision, nil
}

// validateToken returns ok=false with the decision filled in when the token
// is rejected; an error return means an infrastructure failure, not a
// validation outcome.
func (r CheckinRepository) validateToken(ctx context.Context, tx *sqlx.Tx, ticket entities.Ticket, token qrtoken.Token, decision *entities.CheckInDecision) (bool, error) {
	now := time.Now()

	switch ticket.QRMode {
	case entities.QRModeSingleUse:
		if err := r.validator.ValidateSingleUse(ticket.QRSecret, token, now); err != nil {
			r.mapTokenError(err, decision)
			return false, nil
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO used_nonces (ticket_id, nonce)
			VALUES ($1, $2)
			ON CONFLICT (ticket_id, nonce) DO NOTHING`,
			ticket.TicketID, token.Nonce,
		)
		if err != nil {
			return false, fmt.Errorf("could not record used nonce: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("could not read nonce insert result: %w", err)
		}
		if affected == 0 {
			decision.Result = entities.CheckInInvalid
			decision.Reason = "replay detected"
			return false, nil
		}
		return true, nil

	case entities.QRModeRotating:
		if err := r.validator.ValidateRotating(ticket.QRSecret, token, ticket.QRRotationNonce, now); err != nil {
			r.mapTokenError(err, decision)
			return false, nil
		}

		// the compare-and-swap on the stored nonce is the authoritative
		// replay gate: once a token is accepted the counter moves past it
		res, err := tx.ExecContext(ctx, `
			UPDATE tickets
			SET qr_rotation_nonce = $1 + 1
			WHERE ticket_id = $2 AND qr_rotation_nonce = $1`,
			token.Nonce, ticket.TicketID,
		)
		if err != nil {
			return false, fmt.Errorf("could not rotate nonce: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("could not read nonce rotation result: %w", err)
		}
		if affected == 0 {
			decision.Result = entities.CheckInInvalid
			decision.Reason = "replay detected"
			return false, nil
		}
		return true, nil

	default:
		decision.Result = entities.CheckInInvalid
		decision.Reason = "unknown qr mode"
		return false, nil
	}
}

func (r CheckinRepository) mapTokenError(err error, decision *entities.CheckInDecision) {
	switch {
	case errors.Is(err, qrtoken.ErrTokenExpired):
		decision.Result = entities.CheckInExpired
		decision.Reason = "token expired"
	case errors.Is(err, qrtoken.ErrStaleWindow):
		decision.Result = entities.CheckInExpired
		decision.Reason = "token time window is stale"
	default:
		decision.Result = entities.CheckInInvalid
		decision.Reason = err.Error()
	}
}

func (r CheckinRepository) mapTerminalStatus(ctx context.Context, tx *sqlx.Tx, ticket entities.Ticket, decision *entities.CheckInDecision) {
	switch ticket.Status {
	case entities.TicketUsed:
		decision.Result = entities.CheckInAlreadyUsed
		decision.Reason = "ticket already used"
		decision.WinningScan = r.winningScanInTx(ctx, tx, ticket.TicketID)
	case entities.TicketRevoked:
		decision.Result = entities.CheckInRevoked
		decision.Reason = "ticket revoked"
	case entities.TicketRefunded:
		decision.Result = entities.CheckInRevoked
		decision.Reason = "ticket refunded"
	case entities.TicketExpired:
		decision.Result = entities.CheckInExpired
		decision.Reason = "ticket expired"
	default:
		decision.Result = entities.CheckInInvalid
		decision.Reason = fmt.Sprintf("ticket is %s", ticket.Status)
	}
}

// winningScanInTx fetches the earlier valid scan for conflict display. Best
// effort: staff can still resolve the conflict without it.
func (r CheckinRepository) winningScanInTx(ctx context.Context, tx *sqlx.Tx, ticketID uuid.UUID) *entities.CheckInLogEntry {
	var entry entities.CheckInLogEntry
	err := tx.GetContext(ctx, &entry, `
		SELECT entry_id, ticket_id, scanner_id, device_id, result, reason, created_at
		FROM checkin_log
		WHERE ticket_id = $1 AND result = 'valid'
		ORDER BY entry_id
		LIMIT 1`,
		ticketID,
	)
	if err != nil {
		return nil
	}
	return &entry
}

// recordRejection logs scan attempts that never reached the ticket row, so
// malformed and forged tokens still leave an audit trail.
func (r CheckinRepository) recordRejection(ctx context.Context, req CheckInRequest, result entities.CheckInResult, reason string) (entities.CheckInDecision, error) {
	decision := entities.CheckInDecision{
		TicketID: req.TicketID,
		Result:   result,
		Reason:   reason,
	}
	err := updateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		return appendCheckInLogInTx(ctx, tx, req, &decision)
	})
	if err != nil {
		return entities.CheckInDecision{}, err
	}
	return decision, nil
}

func appendCheckInLogInTx(ctx context.Context, tx *sqlx.Tx, req CheckInRequest, decision *entities.CheckInDecision) error {
	recordedAt := time.Now().UTC()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO checkin_log (ticket_id, scanner_id, device_id, result, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		req.TicketID, req.ScannerID, req.DeviceID, decision.Result, decision.Reason, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("could not append check-in log: %w", err)
	}

	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}
	err = event.NewBus(outboxPublisher).Publish(ctx, entities.CheckInRecorded_v1{
		Header:     entities.NewEventHeader(),
		TicketID:   req.TicketID,
		ScannerID:  req.ScannerID,
		DeviceID:   req.DeviceID,
		Result:     decision.Result,
		Reason:     decision.Reason,
		RecordedAt: recordedAt,
	})
	if err != nil {
		return fmt.Errorf("could not publish CheckInRecorded_v1: %w", err)
	}
	return nil
}

func (r CheckinRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]entities.CheckInLogEntry, error) {
	var entries []entities.CheckInLogEntry
	err := r.db.Conn.SelectContext(ctx, &entries, `
		SELECT entry_id, ticket_id, scanner_id, device_id, result, reason, created_at
		FROM checkin_log
		WHERE ticket_id = $1
		ORDER BY entry_id`,
		ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("could not list check-in log: %w", err)
	}
	return entries, nil
}
