package message

import (
	"boxoffice/message/command"
	"boxoffice/message/event"
	"boxoffice/message/outbox"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

func NewWatermillRouter(
	pgSubscriber message.Subscriber,
	publisher message.Publisher,
	eventProcessorConfig cqrs.EventProcessorConfig,
	commandProcessorConfig cqrs.CommandProcessorConfig,
	eventHandler event.Handler,
	commandHandler command.Handler,
	watermillLogger watermill.LoggerAdapter,
) *message.Router {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		panic(err)
	}

	useMiddlewares(router, watermillLogger)

	_, err = outbox.NewForwarder(pgSubscriber, publisher, watermillLogger, router)
	if err != nil {
		panic(err)
	}

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		panic(err)
	}

	commandProcessor, err := cqrs.NewCommandProcessorWithConfig(router, commandProcessorConfig)
	if err != nil {
		panic(err)
	}

	err = commandProcessor.AddHandlers(
		cqrs.NewCommandHandler(
			"RevokeTicket",
			commandHandler.RevokeTicket,
		),
		cqrs.NewCommandHandler(
			"RefundTicket",
			commandHandler.RefundTicket,
		),
	)
	if err != nil {
		panic(err)
	}

	err = eventProcessor.AddHandlers(
		cqrs.NewEventHandler(
			"ApplyPayment",
			eventHandler.ApplyPayment,
		),
		cqrs.NewEventHandler(
			"ArchivePaymentReceived",
			eventHandler.ArchivePaymentReceived,
		),
		cqrs.NewEventHandler(
			"ArchiveTicketIssued",
			eventHandler.ArchiveTicketIssued,
		),
		cqrs.NewEventHandler(
			"ArchiveReservationExpired",
			eventHandler.ArchiveReservationExpired,
		),
		cqrs.NewEventHandler(
			"ArchiveCheckInRecorded",
			eventHandler.ArchiveCheckInRecorded,
		),
		cqrs.NewEventHandler(
			"ArchiveTicketRevoked",
			eventHandler.ArchiveTicketRevoked,
		),
		cqrs.NewEventHandler(
			"ArchiveTicketRefunded",
			eventHandler.ArchiveTicketRefunded,
		),
	)
	if err != nil {
		panic(err)
	}

	return router
}
