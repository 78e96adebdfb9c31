package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	reservationserrors "campsite/internal/reservations/errors"
	"campsite/internal/reservations/events"
	"campsite/internal/reservations/repository"
	"campsite/internal/reservations/validator"
	"campsite/pkg/config"
	"campsite/pkg/dates"
	apperrors "campsite/pkg/errors"
	"campsite/pkg/logger"
	"campsite/pkg/model"
)

var today = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return today.AddDate(0, 0, n)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// failingRepository makes selected writes fail while delegating the rest.
type failingRepository struct {
	repository.ReservationRepository
	saveErr error
}

func (r *failingRepository) Save(ctx context.Context, reservation *model.Reservation) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.ReservationRepository.Save(ctx, reservation)
}

type mockLeaseRepository struct {
	acquireFunc func(ctx context.Context, holder string, ttl time.Duration) error
	releases    int
}

func (m *mockLeaseRepository) Acquire(ctx context.Context, holder string, ttl time.Duration) error {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, holder, ttl)
	}
	return nil
}

func (m *mockLeaseRepository) Release(ctx context.Context, holder string) error {
	m.releases++
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log:               logger.Discard(),
		AdmissionTimeout:  5 * time.Second,
		AdmissionLeaseTTL: 30 * time.Second,
		MaxStayDays:       3,
		MinDaysAhead:      1,
	}
}

type fixture struct {
	svc       ReservationService
	repo      repository.ReservationRepository
	publisher *recordingPublisher
}

func newFixture(t *testing.T, wrap func(repository.ReservationRepository) repository.ReservationRepository, lease repository.AdmissionLeaseRepository) *fixture {
	t.Helper()
	cfg := testConfig()
	repo := repository.NewMemoryReservationRepository()
	if wrap != nil {
		repo = wrap(repo)
	}
	v := validator.NewReservationValidator(
		validator.Rules{MaxStayDays: cfg.MaxStayDays, MinDaysAhead: cfg.MinDaysAhead},
		dates.FixedClock(today.Add(9*time.Hour)),
		cfg.Log,
	)
	publisher := &recordingPublisher{}
	return &fixture{
		svc:       NewReservationService(repo, lease, v, publisher, cfg),
		repo:      repo,
		publisher: publisher,
	}
}

func request(start, end int) *model.ReservationRequest {
	return &model.ReservationRequest{
		ContactEmail: "camper@example.com",
		ContactName:  "Jane Camper",
		StartDate:    day(start),
		EndDate:      day(end),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func activeBetween(t *testing.T, repo repository.ReservationRepository, start, end time.Time) []*model.Reservation {
	t.Helper()
	active, err := repo.FindActiveOverlapping(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FindActiveOverlapping() error: %v", err)
	}
	return active
}

func TestReserve_Success(t *testing.T) {
	f := newFixture(t, nil, nil)

	req := request(2, 4)
	req.ContactEmail = "  Camper@Example.COM "
	req.ContactName = "  Jane   Camper "

	reservation, err := f.svc.Reserve(context.Background(), req)
	if err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}
	if reservation.ID == "" {
		t.Fatal("Reserve() should return the new id")
	}
	if reservation.ContactEmail != "camper@example.com" || reservation.ContactName != "Jane Camper" {
		t.Errorf("contact fields not sanitized: %q %q", reservation.ContactEmail, reservation.ContactName)
	}
	if req.ContactEmail != "  Camper@Example.COM " {
		t.Error("Reserve() must not mutate the caller's request")
	}

	if got := f.publisher.types(); len(got) != 1 || got[0] != events.TypeCreated {
		t.Errorf("published events = %v", got)
	}
}

func TestReserve_ValidationFailure(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		name    string
		req     *model.ReservationRequest
		message string
	}{
		{"same day", request(2, 2), "End date cannot be the same as start date"},
		{"too long", request(2, 6), "Reservation exceeded 3 consecutive days"},
		{"starts today", request(0, 2), "The campsite can be reserved minimum 1 day(s) from now"},
		{"blank email", func() *model.ReservationRequest { r := request(2, 4); r.ContactEmail = "   "; return r }(), "Reservation email cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Reserve(context.Background(), tt.req)
			assertCode(t, err, apperrors.CodeValidation)
			if msg := apperrors.AsAppError(err).Message; msg != tt.message {
				t.Errorf("message = %q, want %q", msg, tt.message)
			}
		})
	}

	if got := f.publisher.types(); len(got) != 0 {
		t.Errorf("no events expected, got %v", got)
	}
}

func TestReserve_OverlapDeniedUntilCancelled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	first, err := f.svc.Reserve(ctx, request(2, 4))
	if err != nil {
		t.Fatalf("Reserve(day2, day4) error: %v", err)
	}

	_, err = f.svc.Reserve(ctx, request(3, 5))
	assertCode(t, err, apperrors.CodeAdmissionDenied)
	if !errors.Is(err, reservationserrors.ErrDatesUnavailable) {
		t.Error("denial should wrap ErrDatesUnavailable")
	}

	if _, err := f.svc.Reserve(ctx, request(4, 6)); err != nil {
		t.Errorf("check-out day should be bookable: %v", err)
	}

	if err := f.svc.Cancel(ctx, first.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if _, err := f.svc.Reserve(ctx, request(2, 4)); err != nil {
		t.Errorf("Reserve(day2, day4) after cancel: %v", err)
	}
}

func TestReserve_DeniedAfterCancelThenRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	a, _ := f.svc.Reserve(ctx, request(2, 4))
	_, err := f.svc.Reserve(ctx, request(3, 5))
	assertCode(t, err, apperrors.CodeAdmissionDenied)

	if err := f.svc.Cancel(ctx, a.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if _, err := f.svc.Reserve(ctx, request(3, 5)); err != nil {
		t.Errorf("Reserve(day3, day5) after cancelling A: %v", err)
	}
}

func TestReserve_ConcurrentIdenticalRequests(t *testing.T) {
	f := newFixture(t, nil, nil)

	const attempts = 100
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Reserve(context.Background(), request(1, 3))
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var successes, denials int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.HasCode(err, apperrors.CodeAdmissionDenied):
			denials++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 || denials != attempts-1 {
		t.Errorf("successes=%d denials=%d, want 1 and %d", successes, denials, attempts-1)
	}
	if active := activeBetween(t, f.repo, day(1), day(3)); len(active) != 1 {
		t.Errorf("expected 1 active reservation, got %d", len(active))
	}
}

func TestReserve_GateTimeoutIsNotDenial(t *testing.T) {
	f := newFixture(t, nil, nil)
	svc := f.svc.(*reservationService)
	svc.gate = newAdmissionGate(20 * time.Millisecond)

	if err := svc.gate.acquire(context.Background()); err != nil {
		t.Fatalf("acquire() error: %v", err)
	}
	defer svc.gate.release()

	_, err := svc.Reserve(context.Background(), request(2, 4))
	assertCode(t, err, apperrors.CodeTimeout)
	if apperrors.HasCode(err, apperrors.CodeAdmissionDenied) {
		t.Error("timeout must not be reported as a denial")
	}
	if !errors.Is(err, reservationserrors.ErrAdmissionBusy) {
		t.Errorf("timeout should wrap ErrAdmissionBusy, got %v", err)
	}
}

func TestReserve_LeaseHeldFailsClosed(t *testing.T) {
	held := true
	lease := &mockLeaseRepository{
		acquireFunc: func(ctx context.Context, holder string, ttl time.Duration) error {
			if held {
				return reservationserrors.ErrLeaseHeld
			}
			return nil
		},
	}
	f := newFixture(t, nil, lease)

	_, err := f.svc.Reserve(context.Background(), request(2, 4))
	assertCode(t, err, apperrors.CodeUnavailable)

	held = false
	if _, err := f.svc.Reserve(context.Background(), request(2, 4)); err != nil {
		t.Fatalf("Reserve() after lease freed: %v", err)
	}
	if lease.releases != 1 {
		t.Errorf("lease released %d times, want 1", lease.releases)
	}
}

func TestReserve_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.publisher.err = errors.New("broker down")

	if _, err := f.svc.Reserve(context.Background(), request(2, 4)); err != nil {
		t.Fatalf("Reserve() should succeed when publishing fails: %v", err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	r, _ := f.svc.Reserve(ctx, request(2, 4))

	if err := f.svc.Cancel(ctx, r.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	err := f.svc.Cancel(ctx, r.ID)
	assertCode(t, err, apperrors.CodeAlreadyCancelled)
	if !errors.Is(err, reservationserrors.ErrAlreadyCancelled) {
		t.Error("second cancel should wrap ErrAlreadyCancelled")
	}

	assertCode(t, f.svc.Cancel(ctx, "65f1c0ffee0000000000beef"), apperrors.CodeNotFound)
	assertCode(t, f.svc.Cancel(ctx, "nope"), apperrors.CodeInvalidInput)
	assertCode(t, f.svc.Cancel(ctx, ""), apperrors.CodeInvalidInput)

	got := f.publisher.types()
	if len(got) != 2 || got[1] != events.TypeCancelled {
		t.Errorf("published events = %v", got)
	}
}

func TestCancel_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	r, _ := f.svc.Reserve(ctx, request(2, 4))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.svc.Cancel(ctx, r.ID)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, already int
	for err := range errs {
		if err == nil {
			ok++
		} else if apperrors.HasCode(err, apperrors.CodeAlreadyCancelled) {
			already++
		}
	}
	if ok != 1 || already != 1 {
		t.Errorf("ok=%d already=%d, want 1 and 1", ok, already)
	}
}

func TestUpdate_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	original, _ := f.svc.Reserve(ctx, request(2, 4))

	updated, err := f.svc.Update(ctx, original.ID, request(10, 12))
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.ID == original.ID {
		t.Error("Update() should produce a new id")
	}

	old, _ := f.repo.FindByID(ctx, original.ID)
	if !old.Cancelled {
		t.Error("original reservation should be cancelled")
	}
	if active := activeBetween(t, f.repo, day(10), day(12)); len(active) != 1 || active[0].ID != updated.ID {
		t.Errorf("expected exactly the new reservation active, got %+v", active)
	}
	if _, err := f.svc.Reserve(ctx, request(2, 4)); err != nil {
		t.Errorf("original dates should be free after update: %v", err)
	}

	got := f.publisher.types()
	if len(got) < 2 || got[1] != events.TypeUpdated {
		t.Errorf("published events = %v", got)
	}
}

func TestUpdate_SelfOverlapAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	original, _ := f.svc.Reserve(ctx, request(2, 4))

	updated, err := f.svc.Update(ctx, original.ID, request(3, 5))
	if err != nil {
		t.Fatalf("Update() overlapping only itself: %v", err)
	}
	if active := activeBetween(t, f.repo, day(1), day(10)); len(active) != 1 || active[0].ID != updated.ID {
		t.Errorf("expected only the updated reservation active, got %+v", active)
	}
}

func TestUpdate_FailuresLeaveOriginalUntouched(t *testing.T) {
	storageErr := errors.New("write conflict")

	tests := []struct {
		name    string
		wrap    func(repository.ReservationRepository) repository.ReservationRepository
		setup   func(t *testing.T, svc ReservationService)
		req     *model.ReservationRequest
		wantErr string
	}{
		{
			name:    "validation",
			req:     request(5, 5),
			wantErr: apperrors.CodeValidation,
		},
		{
			name: "conflict with another reservation",
			setup: func(t *testing.T, svc ReservationService) {
				if _, err := svc.Reserve(context.Background(), request(6, 8)); err != nil {
					t.Fatalf("setup Reserve() error: %v", err)
				}
			},
			req:     request(5, 7),
			wantErr: apperrors.CodeAdmissionDenied,
		},
		{
			name: "storage failure mid-transaction",
			wrap: func(repo repository.ReservationRepository) repository.ReservationRepository {
				return &failingRepository{ReservationRepository: repo}
			},
			req:     request(10, 12),
			wantErr: apperrors.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, tt.wrap, nil)
			original, err := f.svc.Reserve(ctx, request(2, 4))
			if err != nil {
				t.Fatalf("Reserve() error: %v", err)
			}
			if tt.setup != nil {
				tt.setup(t, f.svc)
			}
			if fr, ok := f.repo.(*failingRepository); ok {
				fr.saveErr = storageErr
			}

			_, err = f.svc.Update(ctx, original.ID, tt.req)
			assertCode(t, err, tt.wantErr)

			found, err := f.repo.FindByID(ctx, original.ID)
			if err != nil {
				t.Fatalf("FindByID() error: %v", err)
			}
			if found.Cancelled {
				t.Error("original reservation must stay active")
			}
			if !found.StartDate.Equal(day(2)) || !found.EndDate.Equal(day(4)) {
				t.Errorf("original dates changed to %v..%v", found.StartDate, found.EndDate)
			}
		})
	}
}

func TestUpdate_CancelledOrMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	r, _ := f.svc.Reserve(ctx, request(2, 4))
	_ = f.svc.Cancel(ctx, r.ID)

	_, err := f.svc.Update(ctx, r.ID, request(6, 8))
	assertCode(t, err, apperrors.CodeAlreadyCancelled)
	if msg := apperrors.AsAppError(err).Message; msg != "Unable to update a cancelled reservation" {
		t.Errorf("message = %q", msg)
	}

	_, err = f.svc.Update(ctx, "65f1c0ffee0000000000beef", request(6, 8))
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestUpdate_ConcurrentWithReserve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	original, _ := f.svc.Reserve(ctx, request(2, 4))

	var wg sync.WaitGroup
	var updateErr, reserveErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, updateErr = f.svc.Update(ctx, original.ID, request(10, 12))
	}()
	go func() {
		defer wg.Done()
		_, reserveErr = f.svc.Reserve(ctx, request(11, 13))
	}()
	wg.Wait()

	if (updateErr == nil) == (reserveErr == nil) {
		t.Fatalf("exactly one should win: update=%v reserve=%v", updateErr, reserveErr)
	}
	if active := activeBetween(t, f.repo, day(10), day(13)); len(active) != 1 {
		t.Errorf("expected 1 active reservation in the contested range, got %d", len(active))
	}
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	_, _ = f.svc.Reserve(ctx, request(2, 4))
	cancelled, _ := f.svc.Reserve(ctx, request(6, 7))
	_ = f.svc.Cancel(ctx, cancelled.ID)

	free, err := f.svc.Availability(ctx, day(1), day(7))
	if err != nil {
		t.Fatalf("Availability() error: %v", err)
	}
	want := []time.Time{day(1), day(4), day(5), day(6), day(7)}
	if len(free) != len(want) {
		t.Fatalf("Availability() = %v, want %v", dates.FormatAll(free), dates.FormatAll(want))
	}
	for i := range want {
		if !free[i].Equal(want[i]) {
			t.Errorf("free[%d] = %s, want %s", i, dates.Format(free[i]), dates.Format(want[i]))
		}
	}

	_, err = f.svc.Availability(ctx, day(7), day(1))
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestCountActiveBetween(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	_, _ = f.svc.Reserve(ctx, request(2, 4))
	_, _ = f.svc.Reserve(ctx, request(5, 7))
	c, _ := f.svc.Reserve(ctx, request(9, 10))
	_ = f.svc.Cancel(ctx, c.ID)

	count, err := f.svc.CountActiveBetween(ctx, day(1), day(30))
	if err != nil {
		t.Fatalf("CountActiveBetween() error: %v", err)
	}
	if count != 2 {
		t.Errorf("CountActiveBetween() = %d, want 2", count)
	}

	_, err = f.svc.CountActiveBetween(ctx, day(30), day(1))
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestUpdate_AtomicToConcurrentAvailability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	current, err := f.svc.Reserve(ctx, request(2, 4))
	if err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}

	stop := make(chan struct{})
	var mu sync.Mutex
	sawFree := 0
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				free, err := f.svc.Availability(ctx, day(2), day(3))
				if err != nil {
					t.Errorf("Availability() error: %v", err)
					return
				}
				if len(free) != 0 {
					mu.Lock()
					sawFree++
					mu.Unlock()
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		updated, err := f.svc.Update(ctx, current.ID, request(2, 4))
		if err != nil {
			close(stop)
			wg.Wait()
			t.Fatalf("Update() %d error: %v", i, err)
		}
		current = updated
	}
	close(stop)
	wg.Wait()

	if sawFree != 0 {
		t.Errorf("availability reported booked days free %d times during updates", sawFree)
	}
}

func TestUpdate_RacingCancelOneWins(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		f := newFixture(t, nil, nil)
		r, err := f.svc.Reserve(ctx, request(2, 4))
		if err != nil {
			t.Fatalf("Reserve() error: %v", err)
		}

		var wg sync.WaitGroup
		var updateErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, updateErr = f.svc.Update(ctx, r.ID, request(6, 8))
		}()
		go func() {
			defer wg.Done()
			cancelErr = f.svc.Cancel(ctx, r.ID)
		}()
		wg.Wait()

		switch {
		case updateErr == nil && cancelErr == nil:
			t.Fatalf("iteration %d: both update and cancel succeeded", i)
		case updateErr == nil:
			assertCode(t, cancelErr, apperrors.CodeAlreadyCancelled)
			if active := activeBetween(t, f.repo, day(1), day(10)); len(active) != 1 || !active[0].StartDate.Equal(day(6)) {
				t.Fatalf("iteration %d: expected only the replacement active, got %+v", i, active)
			}
		case cancelErr == nil:
			assertCode(t, updateErr, apperrors.CodeAlreadyCancelled)
			if active := activeBetween(t, f.repo, day(1), day(10)); len(active) != 0 {
				t.Fatalf("iteration %d: expected nothing active, got %+v", i, active)
			}
		default:
			t.Fatalf("iteration %d: neither won: update=%v cancel=%v", i, updateErr, cancelErr)
		}
	}
}

func TestReserve_CancelledWhileWaitingForGate(t *testing.T) {
	f := newFixture(t, nil, nil)
	svc := f.svc.(*reservationService)

	if err := svc.gate.acquire(context.Background()); err != nil {
		t.Fatalf("acquire() error: %v", err)
	}
	defer svc.gate.release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := svc.Reserve(ctx, request(2, 4))
	assertCode(t, err, apperrors.CodeCancelled)
	if apperrors.HasCode(err, apperrors.CodeTimeout) {
		t.Error("a cancelled caller must not be reported as a timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled cause, got %v", err)
	}
}
