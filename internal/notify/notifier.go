package notify

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pribylovaa/problem-tracker/comments-service/internal/config"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
)

var (
	sentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_notifications_sent_total",
		Help: "Notifications delivered, by category.",
	}, []string{"category"})

	failedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_notifications_failed_total",
		Help: "Notification delivery failures, by category.",
	}, []string{"category"})
)

// Notifier — отправитель уведомлений. Реализация не обязана быть надёжной:
// движок вызывает её в режиме fire-and-forget и переживает любой сбой.
type Notifier interface {
	Dispatch(ctx context.Context, intent models.NotificationIntent) error
}

// SMTPNotifier отправляет письма через внешний SMTP-сервер.
type SMTPNotifier struct {
	cfg config.SMTPConfig
}

// NewSMTPNotifier строит отправителя по настройкам SMTP.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// Dispatch собирает MIME-сообщение (text/html) и отправляет его синхронно.
func (n *SMTPNotifier) Dispatch(_ context.Context, intent models.NotificationIntent) error {
	const op = "notify/SMTPNotifier.Dispatch"

	if !n.cfg.Enabled() {
		return fmt.Errorf("%s: smtp is not configured", op)
	}

	if strings.TrimSpace(intent.Address) == "" {
		return fmt.Errorf("%s: empty recipient address", op)
	}

	from := n.cfg.From
	if n.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", n.cfg.FromName), n.cfg.From)
	}

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + intent.Address + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", intent.Subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(intent.Body)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(n.cfg.Addr(), auth, n.cfg.From, []string{intent.Address}, []byte(msg.String())); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// LogNotifier — заглушка для окружений без SMTP: интент логируется и
// отбрасывается. Удобно локально и в тестовых стендах.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier строит отправителя-заглушку.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Dispatch(_ context.Context, intent models.NotificationIntent) error {
	n.log.Info("notification suppressed: smtp is not configured",
		slog.String("recipient", intent.Recipient),
		slog.String("category", string(intent.Category)),
		slog.String("subject", intent.Subject),
	)

	return nil
}

// AsyncNotifier запускает доставку в отдельной горутине (fire-and-forget):
// публикация комментария не ждёт SMTP и не зависит от его исходов. Ошибки
// доставки логируются и учитываются в метриках, наружу не возвращаются.
type AsyncNotifier struct {
	next Notifier
	log  *slog.Logger
	wg   sync.WaitGroup
}

// NewAsyncNotifier оборачивает отправителя в асинхронную доставку.
func NewAsyncNotifier(next Notifier, log *slog.Logger) *AsyncNotifier {
	return &AsyncNotifier{next: next, log: log}
}

// Dispatch всегда возвращает nil немедленно; сама отправка идёт в фоне.
// Контекст запроса не передаётся дальше: доставка переживает завершение
// HTTP-запроса, породившего её.
func (n *AsyncNotifier) Dispatch(_ context.Context, intent models.NotificationIntent) error {
	n.wg.Add(1)

	go func() {
		defer n.wg.Done()

		if err := n.next.Dispatch(context.Background(), intent); err != nil {
			failedTotal.WithLabelValues(string(intent.Category)).Inc()
			n.log.Error("notification delivery failed",
				slog.String("recipient", intent.Recipient),
				slog.String("category", string(intent.Category)),
				slog.String("err", err.Error()),
			)

			return
		}

		sentTotal.WithLabelValues(string(intent.Category)).Inc()
		n.log.Info("notification delivered",
			slog.String("recipient", intent.Recipient),
			slog.String("category", string(intent.Category)),
		)
	}()

	return nil
}

// Wait дожидается завершения всех фоновых доставок (graceful shutdown).
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}
