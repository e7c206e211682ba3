package booking

import (
	"context"
	"errors"
	"time"

	"github.com/Iqrapath/IqraQuest-sub002/internal/logger"
	"github.com/Iqrapath/IqraQuest-sub002/internal/metrics"
	"github.com/Iqrapath/IqraQuest-sub002/internal/settings"
	"github.com/Iqrapath/IqraQuest-sub002/internal/subject"
	"github.com/Iqrapath/IqraQuest-sub002/internal/user"
	"github.com/shopspring/decimal"
)

var (
	ErrSlotUnavailable    = errors.New("the requested time slot is unavailable")
	ErrInvalidTimeRange   = errors.New("end time must be after start time")
	ErrNotATeacher        = errors.New("selected user is not a teacher")
	ErrTeacherRateUnset   = errors.New("teacher has no hourly rate configured")
	ErrInvalidOccurrences = errors.New("occurrences must be at least 1")
	ErrNotBookingParty    = errors.New("only a booking's student or teacher may cancel it")
	ErrNotDisputable      = errors.New("only bookings with funds in escrow can be disputed")
)

// Escrow is the slice of the escrow engine the orchestrator needs: placing
// the hold during paid creation and refunding held funds on cancellation.
type Escrow interface {
	HoldFunds(ctx context.Context, bookingID int) (*Booking, error)
	RefundHeldFunds(ctx context.Context, bookingID int, reason string) error
}

// Notifier delivers best-effort notifications; failures never fail a
// booking operation.
type Notifier interface {
	Notify(ctx context.Context, userID int, event string, payload map[string]interface{}) error
}

type CreateBookingInput struct {
	TeacherID int
	StudentID int
	SubjectID int
	Start     time.Time
	End       time.Time
}

type Service interface {
	CreateBooking(ctx context.Context, in CreateBookingInput, processPayment bool) (*Booking, error)
	CreateTeacherOffer(ctx context.Context, in CreateBookingInput) (*Booking, error)
	CreateRecurringSeries(ctx context.Context, in CreateBookingInput, recurrence RecurrenceType, occurrences int) ([]*Booking, error)
	IsSlotAvailable(ctx context.Context, teacherID int, start, end time.Time, excludeBookingID int) (bool, error)
	ConfirmBooking(ctx context.Context, bookingID int) error
	CancelBooking(ctx context.Context, userID, bookingID int, reason string) error
	DisputeBooking(ctx context.Context, userID, bookingID int) error
	RecordAttendance(ctx context.Context, bookingID int, teacherAttended, studentAttended bool, actualMinutes *int) error
	GetByID(ctx context.Context, bookingID int) (*Booking, error)
	ListByStudent(ctx context.Context, studentID int) ([]Booking, error)
	ListByTeacher(ctx context.Context, teacherID int) ([]Booking, error)
	StatsByDay(ctx context.Context, from, to time.Time) ([]DailyStat, error)
}

type service struct {
	repo     Repository
	users    user.Repository
	subjects subject.Repository
	settings settings.Resolver
	escrow   Escrow
	notifier Notifier
	currency string
}

func NewService(
	repo Repository,
	users user.Repository,
	subjects subject.Repository,
	resolver settings.Resolver,
	escrow Escrow,
	notifier Notifier,
	defaultCurrency string,
) Service {
	return &service{
		repo:     repo,
		users:    users,
		subjects: subjects,
		settings: resolver,
		escrow:   escrow,
		notifier: notifier,
		currency: defaultCurrency,
	}
}

// CreateBooking creates a tutoring booking and, when processPayment is set,
// synchronously places the escrow hold before returning. A retried request
// for the same teacher, student and start time reuses the still-pending
// booking instead of creating a duplicate.
func (s *service) CreateBooking(ctx context.Context, in CreateBookingInput, processPayment bool) (*Booking, error) {
	if !in.End.After(in.Start) {
		return nil, ErrInvalidTimeRange
	}

	existing, err := s.repo.FindReusablePending(ctx, in.TeacherID, in.StudentID, in.Start)
	if err != nil {
		return nil, err
	}

	var b *Booking
	if existing != nil {
		if existing.PaymentStatus != PaymentUnpaid {
			// Funds already held for this slot; the retry gets the same row.
			return existing, nil
		}

		total, err := s.sessionPrice(ctx, in)
		if err != nil {
			return nil, err
		}
		cfg, err := s.settings.Current(ctx)
		if err != nil {
			return nil, err
		}

		b, err = s.repo.UpdatePendingDetails(ctx, existing.ID, in.SubjectID, in.End, total, cfg.CommissionRate)
		if err != nil {
			return nil, err
		}
		logger.Infof("Reused pending booking %d for teacher %d / student %d", b.ID, in.TeacherID, in.StudentID)
	} else {
		occupied, err := s.repo.HasOverlap(ctx, in.TeacherID, in.Start, in.End, 0)
		if err != nil {
			return nil, err
		}
		if occupied {
			return nil, ErrSlotUnavailable
		}

		total, err := s.sessionPrice(ctx, in)
		if err != nil {
			return nil, err
		}
		cfg, err := s.settings.Current(ctx)
		if err != nil {
			return nil, err
		}

		b, err = s.repo.Create(ctx, &Booking{
			TeacherID:      in.TeacherID,
			StudentID:      in.StudentID,
			SubjectID:      in.SubjectID,
			StartTime:      in.Start,
			EndTime:        in.End,
			Status:         StatusPending,
			PaymentStatus:  PaymentUnpaid,
			TotalPrice:     total,
			Currency:       s.currency,
			CommissionRate: cfg.CommissionRate,
		})
		if err != nil {
			return nil, err
		}
		metrics.RecordBooking("single")
	}

	if processPayment {
		held, err := s.escrow.HoldFunds(ctx, b.ID)
		if err != nil {
			// The booking row survives unpaid so a retried request after a
			// top-up reuses it.
			return b, err
		}
		b = held
	}

	return b, nil
}

// CreateTeacherOffer creates an unpaid booking on the teacher's initiative;
// the student confirms and pays later.
func (s *service) CreateTeacherOffer(ctx context.Context, in CreateBookingInput) (*Booking, error) {
	b, err := s.CreateBooking(ctx, in, false)
	if err != nil {
		return nil, err
	}
	metrics.RecordBooking("offer")

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, b.StudentID, "offer_received", map[string]interface{}{
			"booking_id": b.ID,
			"teacher_id": b.TeacherID,
			"start_time": b.StartTime,
			"price":      b.TotalPrice.String(),
			"currency":   b.Currency,
		}); err != nil {
			logger.Errorf("Offer notification for booking %d failed: %v", b.ID, err)
		}
	}

	return b, nil
}

// CreateRecurringSeries books a weekly or monthly series. The whole series
// commits atomically; one unavailable slot fails everything.
func (s *service) CreateRecurringSeries(ctx context.Context, in CreateBookingInput, recurrence RecurrenceType, occurrences int) ([]*Booking, error) {
	if !in.End.After(in.Start) {
		return nil, ErrInvalidTimeRange
	}
	if occurrences < 1 {
		return nil, ErrInvalidOccurrences
	}

	total, err := s.sessionPrice(ctx, in)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	build := func(start, end time.Time) *Booking {
		return &Booking{
			TeacherID:      in.TeacherID,
			StudentID:      in.StudentID,
			SubjectID:      in.SubjectID,
			StartTime:      start,
			EndTime:        end,
			Status:         StatusPending,
			PaymentStatus:  PaymentUnpaid,
			TotalPrice:     total,
			Currency:       s.currency,
			CommissionRate: cfg.CommissionRate,
		}
	}

	parent := build(in.Start, in.End)
	var children []*Booking
	for i := 1; i < occurrences; i++ {
		var start, end time.Time
		switch recurrence {
		case RecurrenceMonthly:
			start = in.Start.AddDate(0, i, 0)
			end = in.End.AddDate(0, i, 0)
		default:
			start = in.Start.AddDate(0, 0, 7*i)
			end = in.End.AddDate(0, 0, 7*i)
		}
		children = append(children, build(start, end))
	}

	series, err := s.repo.CreateSeries(ctx, parent, children)
	if err != nil {
		if errors.Is(err, ErrSeriesSlotUnavailable) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	metrics.RecordBooking("recurring")
	return series, nil
}

func (s *service) IsSlotAvailable(ctx context.Context, teacherID int, start, end time.Time, excludeBookingID int) (bool, error) {
	if !end.After(start) {
		return false, ErrInvalidTimeRange
	}
	occupied, err := s.repo.HasOverlap(ctx, teacherID, start, end, excludeBookingID)
	if err != nil {
		return false, err
	}
	return !occupied, nil
}

func (s *service) ConfirmBooking(ctx context.Context, bookingID int) error {
	return s.repo.Confirm(ctx, bookingID)
}

// CancelBooking cancels on behalf of either party. Held funds go back to
// the student before the status flips.
func (s *service) CancelBooking(ctx context.Context, userID, bookingID int, reason string) error {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.StudentID != userID && b.TeacherID != userID {
		return ErrNotBookingParty
	}

	if b.PaymentStatus == PaymentHeld {
		if err := s.escrow.RefundHeldFunds(ctx, bookingID, reason); err != nil {
			return err
		}
	}

	return s.repo.Cancel(ctx, bookingID, reason)
}

// DisputeBooking flags a held booking so the automatic sweep skips it until
// an admin refunds or the dispute is withdrawn. Refunds stay possible while
// disputed; releases do not.
func (s *service) DisputeBooking(ctx context.Context, userID, bookingID int) error {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.StudentID != userID && b.TeacherID != userID {
		return ErrNotBookingParty
	}
	if b.PaymentStatus != PaymentHeld {
		return ErrNotDisputable
	}
	return s.repo.SetStatus(ctx, bookingID, StatusDisputed)
}

func (s *service) RecordAttendance(ctx context.Context, bookingID int, teacherAttended, studentAttended bool, actualMinutes *int) error {
	return s.repo.RecordAttendance(ctx, bookingID, teacherAttended, studentAttended, actualMinutes)
}

func (s *service) GetByID(ctx context.Context, bookingID int) (*Booking, error) {
	return s.repo.GetByID(ctx, bookingID)
}

func (s *service) ListByStudent(ctx context.Context, studentID int) ([]Booking, error) {
	return s.repo.ListByStudent(ctx, studentID)
}

func (s *service) ListByTeacher(ctx context.Context, teacherID int) ([]Booking, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

func (s *service) StatsByDay(ctx context.Context, from, to time.Time) ([]DailyStat, error) {
	return s.repo.StatsByDay(ctx, from, to)
}

// sessionPrice is the teacher's hourly rate (per-subject override first)
// times the fractional session length in hours, rounded to 2 decimals.
func (s *service) sessionPrice(ctx context.Context, in CreateBookingInput) (decimal.Decimal, error) {
	rate, err := s.subjects.GetTeacherRate(ctx, in.TeacherID, in.SubjectID)
	if err != nil {
		return decimal.Zero, err
	}

	var hourly decimal.Decimal
	if rate.Valid {
		hourly = rate.Decimal
	} else {
		teacher, err := s.users.FindByID(ctx, in.TeacherID)
		if err != nil {
			return decimal.Zero, err
		}
		if teacher.Role != user.RoleTeacher {
			return decimal.Zero, ErrNotATeacher
		}
		if !teacher.HourlyRate.Valid {
			return decimal.Zero, ErrTeacherRateUnset
		}
		hourly = teacher.HourlyRate.Decimal
	}

	hours := decimal.NewFromFloat(in.End.Sub(in.Start).Hours())
	return hourly.Mul(hours).Round(2), nil
}
