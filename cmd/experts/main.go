package main

import (
	bookingsrepo "counsel/internal/bookings/repository"
	"counsel/internal/experts/handler"
	"counsel/internal/experts/repository"
	"counsel/internal/experts/service"
	"counsel/internal/experts/validator"
	sessionsrepo "counsel/internal/sessions/repository"
	"counsel/pkg/app"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	"counsel/pkg/metrics"
)

const ServiceName = "experts"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Experts service")

	registry := metrics.NewRegistry()
	recorder := metrics.NewCollector(registry)

	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		cfg.Log.Fatal("Invalid auth configuration", "error", err)
	}

	expertService := initServices(cfg)
	serverApp := app.NewApplication(cfg, recorder, registry)
	serverApp.SetApp(verifier, handler.NewExpertHandler(expertService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.ExpertService {
	expertService := service.NewExpertService(
		repository.NewMongoExpertRepository(cfg),
		bookingsrepo.NewMongoBookingRepository(cfg),
		sessionsrepo.NewMongoSessionRepository(cfg),
		validator.NewExpertValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Expert service initialized", "database", cfg.MongoDatabaseName)
	return expertService
}
