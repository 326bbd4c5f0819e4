// Package qrtoken implements the two proof-of-ticket token protocols: mode A
// (single-use signed) and mode B (rotating time-windowed). Everything here is
// a pure function of the per-ticket secret, the token fields and the clock;
// replay bookkeeping (used nonces, rotation nonce increments) belongs to the
// check-in transaction so that verification never touches storage.
package qrtoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"boxoffice/entities"

	"github.com/google/uuid"
)

const (
	DefaultSingleUseValidity  = 24 * time.Hour
	DefaultRotationInterval   = 60 * time.Second
	DefaultClockSkewTolerance = 30 * time.Second
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrUnknownMode      = errors.New("unknown token mode")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrStaleWindow      = errors.New("token time window is stale")
	ErrNonceOutOfRange  = errors.New("rotation nonce out of range")
)

// Token is the parsed form of a presented token string. Timestamp is the
// issuance time for mode A and the window start for mode B, both unix
// seconds. Nonce is the random single-use nonce for mode A and the rotation
// counter for mode B.
type Token struct {
	Mode      entities.QRMode
	TicketID  uuid.UUID
	Timestamp int64
	Nonce     int64

	signature []byte
}

// payload is the exact byte string the signature covers. External verifiers
// must reproduce it including field order: mode, ticket id, timestamp, nonce,
// dot-separated.
func payload(mode entities.QRMode, ticketID uuid.UUID, timestamp, nonce int64) string {
	return fmt.Sprintf("%s.%s.%d.%d", mode, ticketID, timestamp, nonce)
}

func sign(secret []byte, payload string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func encode(mode entities.QRMode, ticketID uuid.UUID, timestamp, nonce int64, secret []byte) string {
	p := payload(mode, ticketID, timestamp, nonce)
	return p + "." + base64.RawURLEncoding.EncodeToString(sign(secret, p))
}

// GenerateSingleUse issues a fresh mode-A token. Every call draws a new
// random nonce, so the previously displayed code is superseded.
func GenerateSingleUse(secret []byte, ticketID uuid.UUID, now time.Time) (string, error) {
	nonce, err := randomNonce()
	if err != nil {
		return "", fmt.Errorf("could not generate token nonce: %w", err)
	}
	return encode(entities.QRModeSingleUse, ticketID, now.Unix(), nonce, secret), nil
}

// GenerateRotating issues a mode-B token for the current time window using
// the ticket's stored rotation nonce.
func GenerateRotating(secret []byte, ticketID uuid.UUID, rotationNonce int64, now time.Time, interval time.Duration) string {
	return encode(entities.QRModeRotating, ticketID, windowStart(now, interval), rotationNonce, secret)
}

func randomNonce() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	// clear the sign bit so the nonce round-trips through int64 columns
	return int64(binary.BigEndian.Uint64(buf[:]) &^ (1 << 63)), nil
}

func windowStart(now time.Time, interval time.Duration) int64 {
	step := int64(interval / time.Second)
	return (now.Unix() / step) * step
}

// Parse splits a presented token string into its fields. It fails closed: a
// missing field, an unknown mode discriminator or a non-numeric field is an
// unconditional rejection.
func Parse(raw string) (Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 5 {
		return Token{}, ErrMalformedToken
	}

	mode := entities.QRMode(parts[0])
	if mode != entities.QRModeSingleUse && mode != entities.QRModeRotating {
		return Token{}, ErrUnknownMode
	}

	ticketID, err := uuid.Parse(parts[1])
	if err != nil {
		return Token{}, ErrMalformedToken
	}
	timestamp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Token{}, ErrMalformedToken
	}
	nonce, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Token{}, ErrMalformedToken
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[4])
	if err != nil {
		return Token{}, ErrMalformedToken
	}

	return Token{
		Mode:      mode,
		TicketID:  ticketID,
		Timestamp: timestamp,
		Nonce:     nonce,
		signature: signature,
	}, nil
}

// Validator holds the protocol timing parameters. The zero value is not
// usable; construct it with NewValidator.
type Validator struct {
	SingleUseValidity  time.Duration
	RotationInterval   time.Duration
	ClockSkewTolerance time.Duration
}

func NewValidator() Validator {
	return Validator{
		SingleUseValidity:  DefaultSingleUseValidity,
		RotationInterval:   DefaultRotationInterval,
		ClockSkewTolerance: DefaultClockSkewTolerance,
	}
}

func (v Validator) verifySignature(secret []byte, t Token) error {
	expected := sign(secret, payload(t.Mode, t.TicketID, t.Timestamp, t.Nonce))
	if !hmac.Equal(expected, t.signature) {
		return ErrInvalidSignature
	}
	return nil
}

// ValidateSingleUse checks a mode-A token's signature and issuance window.
// The used-nonce check happens in the check-in transaction.
func (v Validator) ValidateSingleUse(secret []byte, t Token, now time.Time) error {
	if t.Mode != entities.QRModeSingleUse {
		return ErrUnknownMode
	}
	if err := v.verifySignature(secret, t); err != nil {
		return err
	}
	issuedAt := time.Unix(t.Timestamp, 0)
	if now.Sub(issuedAt) > v.SingleUseValidity {
		return ErrTokenExpired
	}
	if issuedAt.Sub(now) > v.ClockSkewTolerance {
		return ErrTokenExpired
	}
	return nil
}

// ValidateRotating checks a mode-B token's signature, time window and nonce
// distance against the ticket's stored rotation nonce. A distance of exactly
// one step is tolerated for tokens generated just before a rotation; the
// caller's guarded nonce increment is what makes exact replays fail.
func (v Validator) ValidateRotating(secret []byte, t Token, storedNonce int64, now time.Time) error {
	if t.Mode != entities.QRModeRotating {
		return ErrUnknownMode
	}
	if err := v.verifySignature(secret, t); err != nil {
		return err
	}

	serverWindow := windowStart(now, v.RotationInterval)
	drift := serverWindow - t.Timestamp
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Second > v.RotationInterval+v.ClockSkewTolerance {
		return ErrStaleWindow
	}

	distance := storedNonce - t.Nonce
	if distance < 0 {
		distance = -distance
	}
	if distance > 1 {
		return ErrNonceOutOfRange
	}
	return nil
}
