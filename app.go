package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-reservation/config"
	"github.com/yeremiapane/restaurant-reservation/controllers"
	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/middlewares"
	"github.com/yeremiapane/restaurant-reservation/protocol"
	"github.com/yeremiapane/restaurant-reservation/repository"
	"github.com/yeremiapane/restaurant-reservation/router"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// app holds the wired service graph. Background workers run until the
// context given to newApp is cancelled; Close then waits for them.
type app struct {
	router        *gin.Engine
	expiry        *services.OfferExpiryJob
	notifications *services.NotificationQueue
	redis         *hub.RedisMirror
}

func newApp(ctx context.Context, cfg *config.Config, db *gorm.DB) (*app, error) {
	a := &app{}

	// Repositories
	tableRepo := repository.NewTableRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	waitingRepo := repository.NewWaitingRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	hoursRepo := repository.NewHoursRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Floor hub, optionally mirrored to Redis
	var mirror hub.Mirror
	if cfg.RedisAddr != "" {
		redisMirror, err := hub.NewRedisMirror(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisStream)
		if err != nil {
			utils.ErrorLogger.Printf("Redis mirror disabled: %v", err)
		} else {
			a.redis = redisMirror
			mirror = redisMirror
		}
	}
	floorHub := hub.New(256, mirror)
	go floorHub.Run(ctx)

	// Notifications
	var senders []services.Sender
	if cfg.TwilioEnabled() {
		senders = append(senders, services.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber))
	}
	if cfg.SendGridEnabled() {
		senders = append(senders, services.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFromName, cfg.SendGridFromEmail))
	}
	a.notifications = services.NewNotificationQueue(cfg.NotificationBuffer, customerRepo, notificationRepo, senders...)
	a.notifications.Start(ctx)

	// Core services
	accounts, err := services.ParseStaffAccounts(cfg.StaffAccounts)
	if err != nil {
		return nil, fmt.Errorf("invalid STAFF_ACCOUNTS: %w", err)
	}
	credentials := services.NewCredentialStore(accounts, []byte(cfg.JWTSecret), cfg.TokenTTL)

	codes := services.NewCodeGenerator(reservationRepo, waitingRepo)
	tracker := services.NewTableTracker(tableRepo, floorHub)
	hours := services.NewHoursService(hoursRepo, cfg.Location)
	customers := services.NewCustomerService(customerRepo)

	reservations := services.NewReservationService(services.ReservationServiceOptions{
		Reservations: reservationRepo,
		Customers:    customerRepo,
		Tracker:      tracker,
		Codes:        codes,
		Hours:        hours,
		Prices:       services.CoverChargePricing{PerGuest: cfg.CoverCharge},
		Notifier:     a.notifications,
		Publisher:    floorHub,
		Policy: services.ReservationPolicy{
			CheckInEarlyGrace: cfg.CheckInEarlyGrace,
			CheckInLateGrace:  cfg.CheckInLateGrace,
			Location:          cfg.Location,
			CurrencySymbol:    cfg.CurrencySymbol,
		},
	})
	waiting := services.NewWaitingListService(services.WaitingListOptions{
		Entries:     waitingRepo,
		Customers:   customerRepo,
		Tracker:     tracker,
		Admitter:    reservations,
		Codes:       codes,
		Notifier:    a.notifications,
		Publisher:   floorHub,
		OfferWindow: cfg.OfferWindow,
	})
	tracker.SetVacancyHandler(waiting)

	a.expiry = services.NewOfferExpiryJob(waiting, cfg.OfferSweep)
	if err := a.expiry.Start(ctx); err != nil {
		return nil, err
	}

	dispatcher := protocol.NewDefaultDispatcher(protocol.Services{
		Reservations: reservations,
		Waiting:      waiting,
		Tables:       tracker,
		Customers:    customers,
		Hours:        hours,
		Credentials:  credentials,
	})

	var limiter *middlewares.RateLimiter
	if cfg.IPRequestsPerSec > 0 {
		limiter = middlewares.NewRateLimiter(cfg.IPRequestsPerSec, cfg.IPBurst)
	}
	upgrader := controllers.NewUpgrader(cfg.AllowedOrigins)
	a.router = router.SetupRouter(router.Deps{
		Verifier:       credentials,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.AllowedOrigins,
		Protocol:       controllers.NewProtocolController(dispatcher, upgrader, cfg.RequestsPerSecond, cfg.RequestBurst),
		Floor:          controllers.NewFloorController(floorHub, upgrader),
		Auth:           controllers.NewAuthController(credentials),
		Tables:         controllers.NewTableController(tracker, tableRepo, floorHub),
		Reservations:   controllers.NewReservationController(reservations),
		Waiting:        controllers.NewWaitingListController(waiting),
		Customers:      controllers.NewCustomerController(customers, notificationRepo),
	})
	return a, nil
}

// Close stops the offer sweep and waits for queued notifications. Call it
// after cancelling the context passed to newApp.
func (a *app) Close() {
	if a.expiry != nil {
		a.expiry.Stop()
	}
	if a.notifications != nil {
		a.notifications.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			utils.ErrorLogger.Printf("Closing Redis mirror: %v", err)
		}
	}
}
