package service

import (
	"context"
	"time"

	"boxoffice/config"
	"boxoffice/db"
	boxofficeHttp "boxoffice/http"
	"boxoffice/message"
	"boxoffice/message/command"
	"boxoffice/message/event"
	"boxoffice/message/outbox"
	"boxoffice/monitoring"
	"boxoffice/qrtoken"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	watermillRouter *watermillMessage.Router
	echoRouter      *echo.Echo
	reservationRepo db.ReservationRepository

	bindAddr      string
	sweepInterval time.Duration
}

func New(
	cfg config.Config,
	redisClient *redis.Client,
	conn *db.DB,
) Service {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var redisPublisher watermillMessage.Publisher
	redisPublisher = message.NewRedisPublisher(redisClient, watermillLogger)
	redisPublisher = log.CorrelationPublisherDecorator{Publisher: redisPublisher}

	eventBus := event.NewBus(redisPublisher)
	commandBus := command.NewCommandBus(redisPublisher)

	inventoryRepo := db.NewInventoryRepository(conn)
	reservationRepo := db.NewReservationRepository(conn)
	ticketRepo := db.NewTicketRepository(conn)
	checkoutRepo := db.NewCheckoutRepository(conn, cfg.PlatformFeePercent)
	checkinRepo := db.NewCheckinRepository(conn, qrtoken.NewValidator())
	dataLakeRepo := db.NewEventRepository(conn)

	eventsHandler := event.NewHandler(checkoutRepo, dataLakeRepo)
	commandsHandler := command.NewHandler(ticketRepo)

	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)
	commandProcessorConfig := command.NewCommandProcessorConfig(redisClient, watermillLogger)

	pgSubscriber := outbox.SubscribeForPGMessages(conn.Conn, watermillLogger)
	watermillRouter := message.NewWatermillRouter(
		pgSubscriber,
		redisPublisher,
		eventProcessorConfig,
		commandProcessorConfig,
		eventsHandler,
		commandsHandler,
		watermillLogger,
	)

	echoRouter := boxofficeHttp.NewHttpRouter(
		eventBus,
		commandBus,
		inventoryRepo,
		reservationRepo,
		ticketRepo,
		checkinRepo,
		cfg.ReservationTTL,
	)

	return Service{
		watermillRouter: watermillRouter,
		echoRouter:      echoRouter,
		reservationRepo: reservationRepo,
		bindAddr:        cfg.BindAddr,
		sweepInterval:   cfg.SweepInterval,
	}
}

func (s Service) Run(
	ctx context.Context,
) error {
	errgrp, ctx := errgroup.WithContext(ctx)

	errgrp.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	errgrp.Go(func() error {
		// we don't want to start HTTP server before Watermill router (so service won't be healthy before it's ready)
		<-s.watermillRouter.Running()

		err := s.echoRouter.Start(s.bindAddr)

		if err != nil {
			return err
		}

		return nil
	})

	errgrp.Go(func() error {
		return s.runExpirySweeper(ctx)
	})

	errgrp.Go(func() error {
		<-ctx.Done()
		return s.echoRouter.Shutdown(context.Background())
	})

	return errgrp.Wait()
}

// runExpirySweeper lapses overdue holds on a fixed cadence. Multiple service
// instances may sweep concurrently; the guarded updates make that safe.
func (s Service) runExpirySweeper(ctx context.Context) error {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			swept, err := s.reservationRepo.SweepExpired(ctx)
			if err != nil {
				log.FromContext(ctx).WithError(err).Error("expiry sweep failed")
				continue
			}
			if swept > 0 {
				monitoring.ReservationsSwept(swept)
				log.FromContext(ctx).WithField("count", swept).Info("expired reservations swept")
			}
		}
	}
}
