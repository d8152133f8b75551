package main

import (
	bookingsevents "counsel/internal/bookings/events"
	bookingshandler "counsel/internal/bookings/handler"
	bookingsrepo "counsel/internal/bookings/repository"
	bookingsservice "counsel/internal/bookings/service"
	bookingsvalidator "counsel/internal/bookings/validator"
	expertsrepo "counsel/internal/experts/repository"
	roomshandler "counsel/internal/rooms/handler"
	roomsservice "counsel/internal/rooms/service"
	sessionshandler "counsel/internal/sessions/handler"
	sessionsrepo "counsel/internal/sessions/repository"
	sessionsservice "counsel/internal/sessions/service"
	sessionsvalidator "counsel/internal/sessions/validator"
	usersrepo "counsel/internal/users/repository"
	usersservice "counsel/internal/users/service"
	"counsel/pkg/app"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	"counsel/pkg/contracts"
	"counsel/pkg/kafka"
	kafka_config "counsel/pkg/kafka/config"
	kafka_middleware "counsel/pkg/kafka/middleware"
	"counsel/pkg/metrics"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")

	registry := metrics.NewRegistry()
	recorder := metrics.NewCollector(registry)

	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		cfg.Log.Fatal("Invalid auth configuration", "error", err)
	}

	publisher, closePublisher := initPublisher(cfg, recorder)

	serverApp := app.NewApplication(cfg, recorder, registry)
	serverApp.OnShutdown(closePublisher)
	serverApp.SetApp(verifier, initHandlers(cfg, publisher, recorder)...)
	serverApp.Run()
}

// initPublisher connects booking events to Kafka. Bookings are still accepted
// when the producer cannot be built; confirmations are then not sent.
func initPublisher(cfg *config.Config, recorder metrics.Recorder) (bookingsevents.Publisher, func()) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Kafka disabled, booking confirmations will not be sent", "error", err)
		return bookingsevents.NopPublisher{}, func() {}
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.BookingEventsTopic, kafkaCfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Warn("Kafka producer unavailable, booking confirmations will not be sent", "error", err)
		return bookingsevents.NopPublisher{}, func() {}
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(recorder))
	}

	cfg.Log.Info("Booking events producer ready", "topic", producer.Topic())
	return bookingsevents.NewKafkaPublisher(producer), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}

func initHandlers(cfg *config.Config, publisher bookingsevents.Publisher, recorder metrics.Recorder) []contracts.Handler {
	userRepo := usersrepo.NewMongoUserRepository(cfg)
	expertRepo := expertsrepo.NewMongoExpertRepository(cfg)
	sessionRepo := sessionsrepo.NewMongoSessionRepository(cfg)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)

	userService := usersservice.NewUserService(userRepo, cfg)
	sessionService := sessionsservice.NewSessionService(
		sessionRepo,
		bookingRepo,
		expertRepo,
		sessionsvalidator.NewSessionValidator(cfg.Log),
		cfg,
	)
	bookingService := bookingsservice.NewBookingService(bookingsservice.Dependencies{
		Repo:      bookingRepo,
		Sessions:  sessionRepo,
		Experts:   expertRepo,
		Users:     userService,
		Validator: bookingsvalidator.NewBookingValidator(cfg.Log),
		Publisher: publisher,
		Recorder:  recorder,
	}, cfg)
	roomService := roomsservice.NewRoomService(
		sessionRepo,
		bookingRepo,
		expertRepo,
		userService,
		auth.NewRoomTokenSigner(cfg.RoomTokenSecret, cfg.RoomAPIKey, cfg.RoomTokenTTL),
		cfg,
	)

	cfg.Log.Info("Booking services initialized", "database", cfg.MongoDatabaseName)
	return []contracts.Handler{
		sessionshandler.NewSessionHandler(sessionService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
		roomshandler.NewRoomHandler(roomService, cfg.Log),
	}
}
