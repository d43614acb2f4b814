package rabbit

import (
	"context"
	"encoding/json"

	"github.com/rabbitmq/amqp091-go"
)

// PushPublisher implementa el transporte de push publicando en el exchange
// push_gateway; el gateway que habla con APNS/FCM consume de ahí. La routing
// key es la plataforma para que cada worker escuche solo la suya.
type PushPublisher struct {
	ch *amqp091.Channel
}

func NewPushPublisher(ch *amqp091.Channel) *PushPublisher {
	return &PushPublisher{ch: ch}
}

type pushEnvelope struct {
	Endpoint string          `json:"endpoint"`
	Payload  json.RawMessage `json:"payload"`
}

func (p *PushPublisher) Send(ctx context.Context, platform, endpoint string, payload []byte) error {
	body, err := json.Marshal(pushEnvelope{Endpoint: endpoint, Payload: payload})
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx,
		pushExchange,
		platform, // ios | android
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
}

// MailPublisher manda los correos transaccionales por el exchange de mail.
type MailPublisher struct {
	ch *amqp091.Channel
}

func NewMailPublisher(ch *amqp091.Channel) *MailPublisher {
	return &MailPublisher{ch: ch}
}

type mailEnvelope struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

func (m *MailPublisher) SendMail(ctx context.Context, to, subject, template string, data map[string]string) error {
	body, err := json.Marshal(mailEnvelope{To: to, Subject: subject, Template: template, Data: data})
	if err != nil {
		return err
	}

	return m.ch.PublishWithContext(ctx,
		mailExchange,
		"",
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
}
