package main

import (
	"campsite/internal/reservations/events"
	"campsite/internal/reservations/handler"
	"campsite/internal/reservations/jobs"
	"campsite/internal/reservations/repository"
	"campsite/internal/reservations/service"
	"campsite/internal/reservations/validator"
	"campsite/pkg/app"
	"campsite/pkg/config"
	"campsite/pkg/dates"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.ConnectStorage()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")
	serverApp := app.NewApplication(cfg)

	reservationService, reservationValidator := initServices(cfg, serverApp)
	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client, cfg.Log),
		handler.NewReservationHandler(reservationService, handler.AvailabilityWindow{
			DefaultMonths: cfg.DefaultAvailabilityMonths,
			MaxMonths:     cfg.MaxAvailabilityMonths,
		}, reservationValidator.Earliest, cfg.Log),
	)

	if cfg.OccupancyReportSchedule != "" {
		report, err := jobs.NewOccupancyReport(reservationService, cfg.OccupancyReportSchedule, cfg.DefaultAvailabilityMonths, dates.SystemClock, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to schedule occupancy report", "error", err)
		}
		serverApp.AddJob(report)
	}

	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) (service.ReservationService, *validator.ReservationValidator) {
	reservationRepo, err := repository.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create reservation repository", "error", err)
	}

	var leaseRepo repository.AdmissionLeaseRepository
	if cfg.AdmissionLeaseEnabled {
		leaseRepo = repository.NewAdmissionLeaseRepository(cfg)
		cfg.Log.Info("Cross-process admission lease enabled", "ttl", cfg.AdmissionLeaseTTL)
	}

	publisher, err := events.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create reservation event publisher", "error", err)
	}
	serverApp.OnShutdown(publisher.Close)

	reservationValidator := validator.NewReservationValidator(validator.Rules{
		MaxStayDays:  cfg.MaxStayDays,
		MinDaysAhead: cfg.MinDaysAhead,
	}, dates.SystemClock, cfg.Log)

	reservationService := service.NewReservationService(
		reservationRepo,
		leaseRepo,
		reservationValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Reservation service initialized", "storage", cfg.StorageDriver)
	return reservationService, reservationValidator
}
