package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Iqrapath/IqraQuest-sub002/internal/booking"
	"github.com/Iqrapath/IqraQuest-sub002/internal/logger"
	"github.com/Iqrapath/IqraQuest-sub002/internal/metrics"
	"github.com/Iqrapath/IqraQuest-sub002/internal/settings"
	"github.com/shopspring/decimal"
)

// Notifier delivers best-effort user notifications. Delivery failures are
// logged and swallowed; they never affect a financial transition.
type Notifier interface {
	Notify(ctx context.Context, userID int, event string, payload map[string]interface{}) error
}

// SweepReport aggregates one run of the automatic release sweep.
type SweepReport struct {
	Released int      `json:"released"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

type Service interface {
	HoldFunds(ctx context.Context, bookingID int) (*booking.Booking, error)
	ReleaseFunds(ctx context.Context, bookingID int, custom *decimal.Decimal) (*Resolution, error)
	RefundFunds(ctx context.Context, bookingID int, custom *decimal.Decimal, reason string) (*Resolution, error)
	ProcessPartialPayment(ctx context.Context, bookingID int, teacherPercent decimal.Decimal, reason string) (*Resolution, error)
	HandleSessionCompletion(ctx context.Context, bookingID int) (*Resolution, error)
	HandleTeacherNoShow(ctx context.Context, bookingID int) (*Resolution, error)
	HandleStudentNoShow(ctx context.Context, bookingID int) (*Resolution, error)
	ProcessEligibleReleases(ctx context.Context) (*SweepReport, error)
	RefundHeldFunds(ctx context.Context, bookingID int, reason string) error
}

type service struct {
	repo         Repository
	bookings     booking.Repository
	settings     settings.Resolver
	notifier     Notifier
	sweepTimeout time.Duration
}

func NewService(repo Repository, bookings booking.Repository, resolver settings.Resolver, notifier Notifier, sweepTimeout time.Duration) Service {
	if sweepTimeout <= 0 {
		sweepTimeout = 15 * time.Second
	}
	return &service{
		repo:         repo,
		bookings:     bookings,
		settings:     resolver,
		notifier:     notifier,
		sweepTimeout: sweepTimeout,
	}
}

func (s *service) HoldFunds(ctx context.Context, bookingID int) (*booking.Booking, error) {
	b, _, err := s.repo.Hold(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	metrics.RecordEscrowHold()
	logger.Infof("Escrow hold placed for booking %d (%s %s)", b.ID, b.TotalPrice, b.Currency)
	return b, nil
}

func (s *service) ReleaseFunds(ctx context.Context, bookingID int, custom *decimal.Decimal) (*Resolution, error) {
	res, err := s.repo.Release(ctx, bookingID, custom)
	if err != nil {
		return nil, err
	}
	metrics.RecordEscrowResolution("released")
	s.notify(res.Booking.TeacherID, "funds_released", map[string]interface{}{
		"booking_id": res.Booking.ID,
		"amount":     res.TeacherEarnings.String(),
		"currency":   res.Booking.Currency,
	})
	return res, nil
}

func (s *service) RefundFunds(ctx context.Context, bookingID int, custom *decimal.Decimal, reason string) (*Resolution, error) {
	res, err := s.repo.Refund(ctx, bookingID, custom, reason)
	if err != nil {
		return nil, err
	}
	metrics.RecordEscrowResolution("refunded")
	s.notify(res.Booking.StudentID, "funds_refunded", map[string]interface{}{
		"booking_id": res.Booking.ID,
		"amount":     res.RefundAmount.String(),
		"currency":   res.Booking.Currency,
		"reason":     reason,
	})
	return res, nil
}

func (s *service) ProcessPartialPayment(ctx context.Context, bookingID int, teacherPercent decimal.Decimal, reason string) (*Resolution, error) {
	res, err := s.repo.Partial(ctx, bookingID, teacherPercent, reason)
	if err != nil {
		return nil, err
	}
	metrics.RecordEscrowResolution("partial")
	if res.TeacherTransaction != nil {
		s.notify(res.Booking.TeacherID, "funds_released", map[string]interface{}{
			"booking_id": res.Booking.ID,
			"amount":     res.TeacherEarnings.String(),
			"currency":   res.Booking.Currency,
			"reason":     reason,
		})
	}
	if res.StudentTransaction != nil {
		s.notify(res.Booking.StudentID, "funds_refunded", map[string]interface{}{
			"booking_id": res.Booking.ID,
			"amount":     res.RefundAmount.String(),
			"currency":   res.Booking.Currency,
			"reason":     reason,
		})
	}
	return res, nil
}

// HandleSessionCompletion applies the attendance policy once a session
// ends. Fully attended sessions above the minimum coverage stay held until
// the dispute window passes; everything else resolves immediately. The
// booking is marked completed whichever branch runs, including when it has
// no held funds to resolve.
func (s *service) HandleSessionCompletion(ctx context.Context, bookingID int) (*Resolution, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	teacherAttended := b.TeacherAttended != nil && *b.TeacherAttended
	studentAttended := b.StudentAttended != nil && *b.StudentAttended

	var res *Resolution
	switch {
	case !teacherAttended && !studentAttended:
		res, err = s.RefundFunds(ctx, bookingID, nil, "Session not attended by either party")
	case !teacherAttended:
		res, err = s.RefundFunds(ctx, bookingID, nil, "Teacher did not attend the session")
	case !studentAttended:
		res, err = s.ProcessPartialPayment(ctx, bookingID, cfg.NoShowTeacherPercent, "Student no-show")
	default:
		// Fully attended and sufficiently covered: funds stay held, the
		// scheduled sweep releases them after the dispute window.
		pct := b.CompletionPercent()
		if pct.LessThan(cfg.MinCompletionPercent) {
			res, err = s.ProcessPartialPayment(ctx, bookingID, pct, "Session ended early")
		}
	}
	if err != nil {
		// No funds held (payment never made or already resolved): nothing to
		// move, but the session is still over, so completion is recorded.
		// Any other failure aborts before the status change; a held booking
		// must never reach completed with its resolution unapplied.
		if !errors.Is(err, ErrInvalidPaymentState) {
			return nil, err
		}
		res = nil
	}

	if err := s.bookings.SetStatus(ctx, bookingID, booking.StatusCompleted); err != nil {
		return res, err
	}
	return res, nil
}

func (s *service) HandleTeacherNoShow(ctx context.Context, bookingID int) (*Resolution, error) {
	res, err := s.RefundFunds(ctx, bookingID, nil, "Teacher did not attend the session")
	if err != nil {
		return nil, err
	}
	if err := s.bookings.Cancel(ctx, bookingID, "Teacher did not attend the session"); err != nil {
		return res, err
	}
	return res, nil
}

func (s *service) HandleStudentNoShow(ctx context.Context, bookingID int) (*Resolution, error) {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.ProcessPartialPayment(ctx, bookingID, cfg.NoShowTeacherPercent, "Student no-show")
	if err != nil {
		return nil, err
	}
	if err := s.bookings.SetStatus(ctx, bookingID, booking.StatusCompleted); err != nil {
		return res, err
	}
	return res, nil
}

// RefundHeldFunds is the error-only refund entry point used by the
// booking cancellation flow.
func (s *service) RefundHeldFunds(ctx context.Context, bookingID int, reason string) error {
	_, err := s.RefundFunds(ctx, bookingID, nil, reason)
	return err
}

// ProcessEligibleReleases releases every held booking past its dispute
// window. Each release runs in its own transaction with a bounded timeout,
// so one slow or failing booking never blocks the rest of the sweep.
func (s *service) ProcessEligibleReleases(ctx context.Context) (*SweepReport, error) {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.repo.ListEligibleForRelease(ctx, time.Now().Add(-cfg.DisputeWindow()))
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Errors: []string{}}
	for _, id := range ids {
		opCtx, cancel := context.WithTimeout(ctx, s.sweepTimeout)
		_, err := s.ReleaseFunds(opCtx, id, nil)
		cancel()
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("booking %d: %v", id, err))
			metrics.RecordSweepResult("failed")
			logger.Errorf("Release sweep failed for booking %d: %v", id, err)
			continue
		}
		report.Released++
		metrics.RecordSweepResult("released")
	}

	if len(ids) > 0 {
		logger.Infof("Release sweep finished: %d released, %d failed", report.Released, report.Failed)
	}
	return report, nil
}

// notify uses a detached context so an expired request context cannot turn
// a committed financial transition into a spurious notification error.
func (s *service) notify(userID int, event string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.notifier.Notify(ctx, userID, event, payload); err != nil {
		logger.Errorf("Notification %s for user %d failed: %v", event, userID, err)
	}
}
