package jobs

import (
	"context"
	"fmt"
	"time"

	"campsite/internal/reservations/service"
	"campsite/pkg/dates"
	"campsite/pkg/logger"

	"github.com/robfig/cron/v3"
)

// OccupancyReport periodically logs how booked the coming window is.
type OccupancyReport struct {
	service  service.ReservationService
	schedule string
	months   int
	timeout  time.Duration
	clock    dates.Clock
	log      *logger.Logger
	cron     *cron.Cron
}

func NewOccupancyReport(svc service.ReservationService, schedule string, months int, clock dates.Clock, log *logger.Logger) (*OccupancyReport, error) {
	if clock == nil {
		clock = dates.SystemClock
	}

	job := &OccupancyReport{
		service:  svc,
		schedule: schedule,
		months:   months,
		timeout:  30 * time.Second,
		clock:    clock,
		log:      log.With("job", "occupancy_report"),
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}

	if _, err := job.cron.AddFunc(schedule, job.run); err != nil {
		return nil, fmt.Errorf("invalid occupancy report schedule %q: %w", schedule, err)
	}
	return job, nil
}

func (j *OccupancyReport) Start() {
	j.log.Info("Starting occupancy report", "schedule", j.schedule)
	j.cron.Start()
}

// Stop waits for a running report to finish.
func (j *OccupancyReport) Stop() {
	<-j.cron.Stop().Done()
	j.log.Info("Occupancy report stopped")
}

func (j *OccupancyReport) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.Report(ctx); err != nil {
		j.log.Error("Occupancy report failed", "error", err)
	}
}

type Occupancy struct {
	StartDate    time.Time
	EndDate      time.Time
	Reservations int64
	FreeDays     int
	TotalDays    int
}

// Report counts active reservations and free days from tomorrow through the
// configured number of months.
func (j *OccupancyReport) Report(ctx context.Context) (*Occupancy, error) {
	start := dates.AddDays(dates.Today(j.clock), 1)
	end := dates.AddMonths(start, j.months)

	count, err := j.service.CountActiveBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("count reservations: %w", err)
	}

	free, err := j.service.Availability(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}

	occupancy := &Occupancy{
		StartDate:    start,
		EndDate:      end,
		Reservations: count,
		FreeDays:     len(free),
		TotalDays:    dates.DaysBetween(start, end) + 1,
	}

	j.log.Info("Occupancy report",
		"start_date", dates.Format(start),
		"end_date", dates.Format(end),
		"reservations", occupancy.Reservations,
		"free_days", occupancy.FreeDays,
		"total_days", occupancy.TotalDays,
	)
	return occupancy, nil
}
