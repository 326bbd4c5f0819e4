package qrtoken

import (
	"strings"
	"testing"
	"time"

	"boxoffice/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestSingleUseRoundTrip(t *testing.T) {
	ticketID := uuid.New()
	now := time.Now()

	raw, err := GenerateSingleUse(testSecret, ticketID, now)
	require.NoError(t, err)

	tok, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, entities.QRModeSingleUse, tok.Mode)
	assert.Equal(t, ticketID, tok.TicketID)
	assert.Equal(t, now.Unix(), tok.Timestamp)

	v := NewValidator()
	assert.NoError(t, v.ValidateSingleUse(testSecret, tok, now))
}

func TestSingleUseFreshNoncePerGeneration(t *testing.T) {
	ticketID := uuid.New()
	now := time.Now()

	first, err := GenerateSingleUse(testSecret, ticketID, now)
	require.NoError(t, err)
	second, err := GenerateSingleUse(testSecret, ticketID, now)
	require.NoError(t, err)

	firstTok, err := Parse(first)
	require.NoError(t, err)
	secondTok, err := Parse(second)
	require.NoError(t, err)

	assert.NotEqual(t, firstTok.Nonce, secondTok.Nonce)
}

func TestSingleUseWrongSecret(t *testing.T) {
	raw, err := GenerateSingleUse(testSecret, uuid.New(), time.Now())
	require.NoError(t, err)

	tok, err := Parse(raw)
	require.NoError(t, err)

	v := NewValidator()
	err = v.ValidateSingleUse([]byte("another-secret-another-secret-00"), tok, time.Now())
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSingleUseTamperedField(t *testing.T) {
	raw, err := GenerateSingleUse(testSecret, uuid.New(), time.Now())
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	parts[3] = "12345"
	tok, err := Parse(strings.Join(parts, "."))
	require.NoError(t, err)

	v := NewValidator()
	assert.ErrorIs(t, v.ValidateSingleUse(testSecret, tok, time.Now()), ErrInvalidSignature)
}

func TestSingleUseExpiresAfterValidityWindow(t *testing.T) {
	now := time.Now()
	raw, err := GenerateSingleUse(testSecret, uuid.New(), now)
	require.NoError(t, err)

	tok, err := Parse(raw)
	require.NoError(t, err)

	v := NewValidator()
	assert.NoError(t, v.ValidateSingleUse(testSecret, tok, now.Add(23*time.Hour)))
	assert.ErrorIs(t, v.ValidateSingleUse(testSecret, tok, now.Add(25*time.Hour)), ErrTokenExpired)
}

func TestParseFailsClosed(t *testing.T) {
	testCases := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "missing fields", token: "A.deadbeef.12"},
		{name: "garbage", token: "not a token at all"},
		{name: "bad ticket id", token: "A.not-a-uuid.1700000000.42.c2ln"},
		{name: "bad timestamp", token: "A.5f8c1f0e-8cbb-4b3c-9a8d-0a6a1f6e2b3c.soon.42.c2ln"},
		{name: "bad nonce", token: "A.5f8c1f0e-8cbb-4b3c-9a8d-0a6a1f6e2b3c.1700000000.many.c2ln"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.token)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestParseUnknownMode(t *testing.T) {
	raw, err := GenerateSingleUse(testSecret, uuid.New(), time.Now())
	require.NoError(t, err)

	_, err = Parse("C" + raw[1:])
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestRotatingRoundTrip(t *testing.T) {
	ticketID := uuid.New()
	now := time.Now()

	raw := GenerateRotating(testSecret, ticketID, 7, now, DefaultRotationInterval)
	tok, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, entities.QRModeRotating, tok.Mode)
	assert.Equal(t, int64(7), tok.Nonce)

	v := NewValidator()
	assert.NoError(t, v.ValidateRotating(testSecret, tok, 7, now))
}

func TestRotatingStaleWindow(t *testing.T) {
	now := time.Now()
	raw := GenerateRotating(testSecret, uuid.New(), 0, now, DefaultRotationInterval)
	tok, err := Parse(raw)
	require.NoError(t, err)

	v := NewValidator()

	// the previous window is still inside interval + skew
	assert.NoError(t, v.ValidateRotating(testSecret, tok, 0, now.Add(time.Minute)))
	assert.ErrorIs(t, v.ValidateRotating(testSecret, tok, 0, now.Add(5*time.Minute)), ErrStaleWindow)
}

func TestRotatingNonceDistance(t *testing.T) {
	now := time.Now()
	raw := GenerateRotating(testSecret, uuid.New(), 5, now, DefaultRotationInterval)
	tok, err := Parse(raw)
	require.NoError(t, err)

	v := NewValidator()
	assert.NoError(t, v.ValidateRotating(testSecret, tok, 5, now))
	assert.NoError(t, v.ValidateRotating(testSecret, tok, 6, now))
	assert.ErrorIs(t, v.ValidateRotating(testSecret, tok, 7, now), ErrNonceOutOfRange)
}

func TestModeMismatchRejected(t *testing.T) {
	now := time.Now()

	single, err := GenerateSingleUse(testSecret, uuid.New(), now)
	require.NoError(t, err)
	singleTok, err := Parse(single)
	require.NoError(t, err)

	rotating := GenerateRotating(testSecret, uuid.New(), 0, now, DefaultRotationInterval)
	rotatingTok, err := Parse(rotating)
	require.NoError(t, err)

	v := NewValidator()
	assert.ErrorIs(t, v.ValidateRotating(testSecret, singleTok, 0, now), ErrUnknownMode)
	assert.ErrorIs(t, v.ValidateSingleUse(testSecret, rotatingTok, now), ErrUnknownMode)
}
