package db

var schema = `
CREATE TABLE IF NOT EXISTS inventory_ledgers (
	event_id UUID NOT NULL,
	ticket_type_id UUID NOT NULL,
	total_capacity INT NOT NULL CHECK (total_capacity >= 0),
	sold_count INT NOT NULL DEFAULT 0 CHECK (sold_count >= 0),
	reserved_count INT NOT NULL DEFAULT 0 CHECK (reserved_count >= 0),
	qr_mode CHAR(1) NOT NULL DEFAULT 'A',
	PRIMARY KEY (event_id, ticket_type_id),
	CHECK (sold_count + reserved_count <= total_capacity)
);

CREATE TABLE IF NOT EXISTS reservations (
	reservation_id UUID PRIMARY KEY,
	event_id UUID NOT NULL,
	ticket_type_id UUID NOT NULL,
	user_id UUID NOT NULL,
	quantity INT NOT NULL CHECK (quantity > 0),
	status VARCHAR(16) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS reservations_pending_expiry_idx
	ON reservations (expires_at) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS tickets (
	ticket_id UUID PRIMARY KEY,
	event_id UUID NOT NULL,
	ticket_type_id UUID NOT NULL,
	buyer_id UUID NOT NULL,
	reservation_id UUID NOT NULL REFERENCES reservations (reservation_id),
	qr_secret BYTEA NOT NULL,
	qr_mode CHAR(1) NOT NULL,
	qr_rotation_nonce BIGINT NOT NULL DEFAULT 0,
	status VARCHAR(16) NOT NULL DEFAULT 'active',
	purchase_price NUMERIC(10, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	payment_ref VARCHAR(255) NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS payments (
	payment_id UUID PRIMARY KEY,
	ticket_id UUID NOT NULL REFERENCES tickets (ticket_id),
	payment_ref VARCHAR(255) NOT NULL,
	amount NUMERIC(10, 2) NOT NULL,
	platform_fee NUMERIC(10, 2) NOT NULL,
	organizer_payout NUMERIC(10, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (amount = platform_fee + organizer_payout)
);

CREATE TABLE IF NOT EXISTS webhook_ledger (
	payment_event_id VARCHAR(255) PRIMARY KEY,
	reservation_id UUID NOT NULL,
	result VARCHAR(32) NOT NULL,
	ticket_id UUID,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS used_nonces (
	ticket_id UUID NOT NULL,
	nonce BIGINT NOT NULL,
	redeemed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (ticket_id, nonce)
);

CREATE TABLE IF NOT EXISTS checkin_log (
	entry_id BIGSERIAL PRIMARY KEY,
	ticket_id UUID NOT NULL,
	scanner_id VARCHAR(255) NOT NULL,
	device_id VARCHAR(255) NOT NULL,
	result VARCHAR(16) NOT NULL,
	reason VARCHAR(255) NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS checkin_log_ticket_idx ON checkin_log (ticket_id, entry_id);

CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	published_at TIMESTAMPTZ NOT NULL,
	event_name VARCHAR(255) NOT NULL,
	event_payload JSONB NOT NULL
);
`
