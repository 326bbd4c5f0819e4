package db

import (
	"context"
	"encoding/json"
	"fmt"

	"boxoffice/entities"
)

// EventRepository is the data lake append-only archive. Every event the
// service publishes lands here once; redeliveries are absorbed by the
// primary key.
type EventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) EventRepository {
	if db == nil {
		panic("db is nil")
	}
	return EventRepository{db: db}
}

func (r EventRepository) Append(ctx context.Context, eventName string, header entities.EventHeader, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not marshal %s payload: %w", eventName, err)
	}

	_, err = r.db.Conn.ExecContext(ctx, `
		INSERT INTO events (event_id, published_at, event_name, event_payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`,
		header.ID, header.PublishedAt, eventName, body,
	)
	if err != nil {
		return fmt.Errorf("could not archive %s: %w", eventName, err)
	}
	return nil
}
