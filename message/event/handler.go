package event

import (
	"context"

	"boxoffice/entities"
)

type CheckoutRepository interface {
	ApplyPayment(ctx context.Context, payment entities.PaymentReceived_v1) (entities.CheckoutResult, error)
}

type EventRepository interface {
	Append(ctx context.Context, eventName string, header entities.EventHeader, payload any) error
}

type Handler struct {
	checkoutRepo CheckoutRepository
	dataLakeRepo EventRepository
}

func NewHandler(checkoutRepo CheckoutRepository, dataLakeRepo EventRepository) Handler {
	if checkoutRepo == nil {
		panic("missing checkoutRepo")
	}
	if dataLakeRepo == nil {
		panic("missing dataLakeRepo")
	}
	return Handler{
		checkoutRepo: checkoutRepo,
		dataLakeRepo: dataLakeRepo,
	}
}
