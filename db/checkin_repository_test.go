package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"boxoffice/entities"
	"boxoffice/qrtoken"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInSingleUseTicket(t *testing.T) {
	db := getDb(t)
	repo := NewCheckinRepository(db, qrtoken.NewValidator())
	ctx := context.Background()

	ticket := issueTicket(t, db, entities.QRModeSingleUse)

	token, err := qrtoken.GenerateSingleUse(ticket.QRSecret, ticket.TicketID, time.Now())
	require.NoError(t, err)

	decision, err := repo.CheckIn(ctx, CheckInRequest{
		TicketID:  ticket.TicketID,
		ScannerID: "gate-1",
		DeviceID:  "device-1",
		Token:     token,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CheckInValid, decision.Result)

	// the exact same token presented again is a replay, not already_used
	decision, err = repo.CheckIn(ctx, CheckInRequest{
		TicketID:  ticket.TicketID,
		ScannerID: "gate-2",
		DeviceID:  "device-2",
		Token:     token,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CheckInInvalid, decision.Result)
	assert.Equal(t, "replay detected", decision.Reason)

	// a fresh token passes validation but the ticket is spent
	fresh, err := qrtoken.GenerateSingleUse(ticket.QRSecret, ticket.TicketID, time.Now())
	require.NoError(t, err)

	decision, err = repo.CheckIn(ctx, CheckInRequest{
		TicketID:  ticket.TicketID,
		ScannerID: "gate-2",
		DeviceID:  "device-2",
		Token:     fresh,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CheckInAlreadyUsed, decision.Result)
	require.NotNil(t, decision.WinningScan)
	assert.Equal(t, "gate-1", decision.WinningScan.ScannerID)
}

func TestCheckInConcurrentScans(t *testing.T) {
	db := getDb(t)
	repo := NewCheckinRepository(db, qrtoken.NewValidator())
	ctx := context.Background()

	ticket := issueTicket(t, db, entities.QRModeSingleUse)

	const scans = 8
	tokens := make([]string, scans)
	for i := range tokens {
		token, err := qrtoken.GenerateSingleUse(ticket.QRSecret, ticket.TicketID, time.Now())
		require.NoError(t, err)
		tokens[i] = token
	}

	var wg sync.WaitGroup
	decisions := make(chan entities.CheckInDecision, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			decision, err := repo.CheckIn(ctx, CheckInRequest{
				TicketID:  ticket.TicketID,
				ScannerID: "gate-1",
				DeviceID:  "device-1",
				Token:     token,
			})
			if err != nil {
				t.Error(err)
				return
			}
			decisions <- decision
		}(tokens[i])
	}
	wg.Wait()
	close(decisions)

	var admitted, rejected int
	for decision := range decisions {
		switch decision.Result {
		case entities.CheckInValid:
			admitted++
		case entities.CheckInAlreadyUsed:
			rejected++
		default:
			t.Fatalf("unexpected result %s (%s)", decision.Result, decision.Reason)
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, scans-1, rejected)
}

func TestCheckInRotatingTicket(t *testing.T) {
	db := getDb(t)
	repo := NewCheckinRepository(db, qrtoken.NewValidator())
	ctx := context.Background()

	ticket := issueTicket(t, db, entities.QRModeRotating)
	require.EqualValues(t, 0, ticket.QRRotationNonce)

	token := qrtoken.GenerateRotating(ticket.QRSecret, ticket.TicketID, ticket.QRRotationNonce, time.Now(), qrtoken.DefaultRotationInterval)

	decision, err := repo.CheckIn(ctx, CheckInRequest{
		TicketID:  ticket.TicketID,
		ScannerID: "gate-1",
		DeviceID:  "device-1",
		Token:     token,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CheckInValid, decision.Result)

	// accepting the token advances the rotation counter past it
	stored, err := NewTicketRepository(db).GetByID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.QRRotationNonce)

	decision, err = repo.CheckIn(ctx, CheckInRequest{
		TicketID:  ticket.TicketID,
		ScannerID: "gate-2",
		DeviceID:  "device-2",
		Token:     token,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CheckInInvalid, decision.Result)
	assert.Equal(t, "replay detected", decision.Reason)
}

func TestCheckInRevokedTicket(t *testing.T) {
	db := getDb(t)
	repo := NewCheckinRepository(db, qrtoken.NewValidator())
	ctx := context.Background()

	ticket := issueTicket(t, db, entities.QRModeSingleUse)
	require.NoError(t, NewTicketRepository(db).Revoke(ctx, ticket.TicketID, "chargeback"))

	token, err := qrtoken.GenerateSingleUse(ticket.QRSecret, ticket.TicketID, time.Now())
	require.NoError(t, err)

	decision, err := repo.CheckIn(ctx, CheckInRequest{
		TicketID:  ticket.TicketID,
		ScannerID: "gate-1",
		DeviceID:  "device-1",
		Token:     token,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CheckInRevoked, decision.Result)
}

func TestCheckInTokenForDifferentTicket(t *testing.T) {
	db := getDb(t)
	repo := NewCheckinRepository(db, qrtoken.NewValidator())
	ctx := context.Background()

	ticket := issueTicket(t, db, entities.QRModeSingleUse)
	other := issueTicket(t, db, entities.QRModeSingleUse)

	token, err := qrtoken.GenerateSingleUse(other.QRSecret, other.TicketID, time.Now())
	require.NoError(t, err)

	decision, err := repo.CheckIn(ctx, CheckInRequest{
		TicketID:  ticket.TicketID,
		ScannerID: "gate-1",
		DeviceID:  "device-1",
		Token:     token,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CheckInInvalid, decision.Result)

	// the attempt still shows up in the audit log
	entries, err := repo.ListByTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entities.CheckInInvalid, entries[0].Result)
}

func TestCheckInMalformedToken(t *testing.T) {
	db := getDb(t)
	repo := NewCheckinRepository(db, qrtoken.NewValidator())

	decision, err := repo.CheckIn(context.Background(), CheckInRequest{
		TicketID:  uuid.New(),
		ScannerID: "gate-1",
		DeviceID:  "device-1",
		Token:     "not-a-token",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CheckInInvalid, decision.Result)
}
