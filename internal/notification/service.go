package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Iqrapath/IqraQuest-sub002/internal/logger"
	"github.com/Iqrapath/IqraQuest-sub002/internal/metrics"
	"github.com/Iqrapath/IqraQuest-sub002/internal/user"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Event   string    `json:"event"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis    *redis.Client
	users    user.Repository
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(users user.Repository, fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		users:    users,
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

// Notify resolves the user's email, renders the event template and queues
// the message. The caller treats failures as non-fatal.
func (s *Service) Notify(ctx context.Context, userID int, event string, payload map[string]interface{}) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		metrics.RecordNotification(event, "failed")
		return err
	}

	subject, body := render(u.Name, event, payload)

	job := Job{
		To:      u.Email,
		Name:    u.Name,
		Event:   event,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		metrics.RecordNotification(event, "failed")
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Errorf("Failed to queue %s notification for %s: %v", event, u.Email, err)
		metrics.RecordNotification(event, "failed")
		return err
	}

	metrics.RecordNotification(event, "queued")
	logger.Infof("Notification queued: %s to %s", event, u.Email)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	metrics.SetNotificationQueueLength(s.QueueLength(ctx))

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send %s notification to %s: %v", job.Event, job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying notification to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			logger.Errorf("Notification to %s failed after %d attempts", job.To, maxTries)
			metrics.RecordNotification(job.Event, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordNotification(job.Event, "sent")
	logger.Infof("Notification sent to %s: %s", job.To, job.Event)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

// render maps an event to a subject and plain-text body. Unknown events get
// a generic message so nothing queued is ever dropped on the floor.
func render(name, event string, payload map[string]interface{}) (string, string) {
	amount := str(payload["amount"])
	currency := str(payload["currency"])
	reason := str(payload["reason"])

	switch event {
	case "funds_released":
		subject := "Payment Received"
		body := fmt.Sprintf(`Hi %s,

Your earnings for booking #%s have been released to your wallet.

Amount: %s %s

- IqraQuest Team`, name, str(payload["booking_id"]), amount, currency)
		return subject, body

	case "funds_refunded":
		subject := "Refund Processed"
		body := fmt.Sprintf(`Hi %s,

Your payment for booking #%s has been refunded to your wallet.

Amount: %s %s
Reason: %s

- IqraQuest Team`, name, str(payload["booking_id"]), amount, currency, reason)
		return subject, body

	case "offer_received":
		subject := "New Session Offer"
		body := fmt.Sprintf(`Hi %s,

A teacher has offered you a tutoring session.

Booking: #%s
Price: %s %s

Log in to confirm and pay.

- IqraQuest Team`, name, str(payload["booking_id"]), str(payload["price"]), currency)
		return subject, body

	default:
		subject := "IqraQuest Notification"
		body := fmt.Sprintf("Hi %s,\n\nThere is an update on your account (%s).\n\n- IqraQuest Team", name, event)
		return subject, body
	}
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
