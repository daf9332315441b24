package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

// Dispatcher delivers one rendered notification over a single channel.
type Dispatcher interface {
	Send(ctx context.Context, recipient, templateName string, data map[string]any) error
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailDispatcher sends plain text mail over SMTP.
type EmailDispatcher struct {
	sender    mailSender
	from      string
	templates *TemplateSet
}

func NewEmailDispatcher(host string, port int, user, password, from string, templates *TemplateSet) *EmailDispatcher {
	if from == "" {
		from = user
	}
	return &EmailDispatcher{
		sender:    gomail.NewDialer(host, port, user, password),
		from:      from,
		templates: templates,
	}
}

func (d *EmailDispatcher) Send(_ context.Context, recipient, templateName string, data map[string]any) error {
	msg, err := d.templates.Render(templateName, data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := d.sender.DialAndSend(m); err != nil {
		return &DependencyFailure{Dependency: "smtp", Err: err}
	}
	return nil
}

type smsClient interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSDispatcher sends the short form of a template through Twilio.
type SMSDispatcher struct {
	client    smsClient
	from      string
	templates *TemplateSet
}

func NewSMSDispatcher(accountSID, authToken, from string, templates *TemplateSet) *SMSDispatcher {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSDispatcher{client: client.Api, from: from, templates: templates}
}

func (d *SMSDispatcher) Send(_ context.Context, recipient, templateName string, data map[string]any) error {
	msg, err := d.templates.Render(templateName, data)
	if err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(d.from)
	params.SetBody(msg.SMS)

	if _, err := d.client.CreateMessage(params); err != nil {
		return &DependencyFailure{Dependency: "twilio", Err: err}
	}
	return nil
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventPublisher emits repair events to a RabbitMQ topic exchange so other
// systems can react to status changes. The recipient is the routing key.
type EventPublisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

func NewEventPublisher(url, exchange string) (*EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &EventPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *EventPublisher) Send(ctx context.Context, recipient, templateName string, data map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"event": templateName,
		"data":  data,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		recipient,  // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return &DependencyFailure{Dependency: "rabbitmq", Err: err}
	}
	return nil
}

func (p *EventPublisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
