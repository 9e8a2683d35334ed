package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avargas-dev/AcademyBack/internal/config"
	"github.com/avargas-dev/AcademyBack/internal/handlers"
	"github.com/avargas-dev/AcademyBack/internal/middleware"
	"github.com/avargas-dev/AcademyBack/internal/notify"
	"github.com/avargas-dev/AcademyBack/internal/repository"
	"github.com/avargas-dev/AcademyBack/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) error {
	userRepo := repository.NewUserRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	sundayRepo := repository.NewSundaySlotRepository(db)

	hub := notify.NewHub()
	go hub.Run()

	var notifier notify.Publisher = hub
	if cfg.AmqpURL != "" {
		amqpPublisher, err := notify.NewAMQPPublisher(cfg.AmqpURL)
		if err != nil {
			return err
		}
		notifier = notify.Fanout{hub, amqpPublisher}
		log.Println("AMQP notification publisher enabled")
	}

	ledgerService := services.NewLedgerService(db, creditRepo, notifier)
	bookingService := services.NewBookingService(db, bookingRepo, registrationRepo, ledgerService, notifier)
	scheduleService := services.NewScheduleService(db, registrationRepo, scheduleRepo, notifier)
	sundayService := services.NewSundayService(db, sundayRepo, notifier)
	paymentService := services.NewPaymentService(db, ledgerService, notifier)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	registrationHandler := handlers.NewRegistrationHandler(registrationRepo)
	creditHandler := handlers.NewCreditHandler(ledgerService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	sundayHandler := handlers.NewSundayHandler(sundayService)
	webhookHandler := handlers.NewWebhookHandler(paymentService)
	notificationHandler := handlers.NewNotificationHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	// Payment processor callbacks authenticate out of band, not with
	// user tokens.
	api.Post("/webhooks/payments", webhookHandler.HandlePaymentEvent)

	v1 := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	registrations := v1.Group("/registrations")
	registrations.Post("", registrationHandler.CreateRegistration)
	registrations.Get("", registrationHandler.ListRegistrations)

	credits := v1.Group("/credits")
	credits.Get("/balance", creditHandler.GetBalance)
	credits.Get("/purchases", creditHandler.ListPurchases)

	bookings := v1.Group("/bookings")
	bookings.Post("", bookingHandler.BookSession)
	bookings.Get("", bookingHandler.ListBookings)
	bookings.Get("/:id", bookingHandler.GetBooking)
	bookings.Post("/:id/cancel", bookingHandler.CancelBooking)
	bookings.Put("/:id/attendance", bookingHandler.MarkAttendance)

	schedules := v1.Group("/schedules")
	schedules.Post("/changes", scheduleHandler.ChangeSchedule)
	schedules.Get("/changes/:id", scheduleHandler.History)

	sundays := v1.Group("/sundays")
	sundays.Get("/slots", sundayHandler.ListSlots)
	sundays.Post("/slots/generate", sundayHandler.GenerateSlots)
	sundays.Post("/bookings", sundayHandler.BookSlot)
	sundays.Post("/bookings/:id/cancel", sundayHandler.CancelBooking)

	api.Use("/v1/ws", notificationHandler.WebSocketAuth())
	api.Get("/v1/ws", notificationHandler.HandleWebSocket())

	return nil
}
