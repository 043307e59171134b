package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"ticketbroker/src/config"
	"ticketbroker/src/lib"
	"ticketbroker/src/lib/aws"
	"ticketbroker/src/utils"
	"time"

	"github.com/google/uuid"
)

// Transport hands a rendered email to a delivery backend.
type Transport interface {
	Send(ctx context.Context, input *lib.SendMailInput) error
}

type SMTPTransport struct{}

func (SMTPTransport) Send(ctx context.Context, input *lib.SendMailInput) error {
	return lib.SendMail(ctx, input)
}

type SESTransport struct{}

func (SESTransport) Send(ctx context.Context, input *lib.SendMailInput) error {
	msg, err := lib.BuildMessage(input)
	if err != nil {
		return err
	}
	raw, err := lib.RawMessage(msg)
	if err != nil {
		return err
	}
	to := append(append(append([]string{}, input.To...), input.Cc...), input.Bcc...)
	_, err = aws.SESSendRawMessage(ctx, input.From, to, raw)
	return err
}

// QueueTransport defers delivery to a worker. The message is queued as raw
// MIME on a kafka topic in local environments and on SQS elsewhere.
type QueueTransport struct {
	Queue   string
	Broker  string
	Produce func(ctx context.Context, queue string, payload map[string]any) error
}

type MailerMessage struct {
	ID        string   `json:"id"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	Raw       string   `json:"raw"`
	Timestamp int64    `json:"timestamp"`
}

func NewMailerMessage(input *lib.SendMailInput, raw []byte) MailerMessage {
	return MailerMessage{
		ID:        uuid.NewString(),
		To:        input.To,
		Subject:   input.Subject,
		Raw:       base64.StdEncoding.EncodeToString(raw),
		Timestamp: time.Now().Unix(),
	}
}

func (m MailerMessage) Payload() map[string]any {
	return map[string]any{
		"id":        m.ID,
		"to":        m.To,
		"subject":   m.Subject,
		"raw":       m.Raw,
		"timestamp": m.Timestamp,
	}
}

func (q *QueueTransport) Send(ctx context.Context, input *lib.SendMailInput) error {
	if q.Queue == "" {
		return errors.New("email queue is not configured")
	}
	msg, err := lib.BuildMessage(input)
	if err != nil {
		return err
	}
	raw, err := lib.RawMessage(msg)
	if err != nil {
		return err
	}
	produce := q.Produce
	if produce == nil {
		produce = q.produce
	}
	return produce(ctx, utils.WithSuffix(q.Queue), NewMailerMessage(input, raw).Payload())
}

func (q *QueueTransport) produce(ctx context.Context, queue string, payload map[string]any) error {
	if q.Broker != "" {
		return lib.KafkaProduceMessage(q.Broker, "emails", queue, payload)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return aws.SQSProduceMessage(ctx, queue, string(body))
}

// LogTransport only logs the envelope. Used in local development.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, input *lib.SendMailInput) error {
	log.Printf("[mail] to=%s subject=%q attachments=%d\n", strings.Join(input.To, ","), input.Subject, len(input.Attachments))
	return nil
}

// NewTransport picks the backend named by MAIL_TRANSPORT.
func NewTransport(cfg *config.Config) Transport {
	switch cfg.MailTransport {
	case "smtp":
		return SMTPTransport{}
	case "ses":
		return SESTransport{}
	case "queue":
		t := &QueueTransport{Queue: cfg.EmailQueue}
		if cfg.ApiEnv == "local" {
			t.Broker = cfg.KafkaBroker
		}
		return t
	default:
		return LogTransport{}
	}
}
