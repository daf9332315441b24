package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

func sampleEventData() map[string]any {
	return map[string]any{
		"repair_id":          "0b6f",
		"ticket_number":      "REP-240110-0042",
		"status":             "ready",
		"status_label":       "Ready for pickup",
		"device":             "Apple iPhone 13",
		"service":            "Screen replacement",
		"total_cost":         "430.00",
		"estimated_delivery": "2024-01-12",
		"notes":              "",
		"customer_name":      "Ana Perez",
		"business_name":      "Fix It",
	}
}

func TestTemplatesRenderEveryPart(t *testing.T) {
	set, err := LoadTemplates()
	require.NoError(t, err)

	for _, name := range []string{TemplateRepairCreated, TemplateStatusChanged, TemplateRepairReady} {
		msg, err := set.Render(name, sampleEventData())
		require.NoError(t, err, name)
		assert.Contains(t, msg.Subject, "REP-240110-0042")
		assert.Contains(t, msg.Body, "Ana Perez")
		assert.Contains(t, msg.SMS, "Fix It")
	}

	msg, err := set.Render(TemplateRepairReady, sampleEventData())
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Pickup date: 2024-01-12")
	assert.Contains(t, msg.SMS, "Total 430.00")

	_, err = set.Render("missing", sampleEventData())
	assert.Error(t, err)
}

func TestParseTemplatesRejectsBadSyntax(t *testing.T) {
	_, err := ParseTemplates([]byte("broken:\n  subject: \"{{.ticket_number\"\n"))
	assert.Error(t, err)
}

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailDispatcher(t *testing.T) {
	set, err := LoadTemplates()
	require.NoError(t, err)
	mailer := &fakeMailer{}
	d := &EmailDispatcher{sender: mailer, from: "shop@example.com", templates: set}

	require.NoError(t, d.Send(context.Background(), "ana@example.com", TemplateStatusChanged, sampleEventData()))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, mailer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Repair REP-240110-0042: Ready for pickup"}, mailer.sent[0].GetHeader("Subject"))

	mailer.err = errors.New("connection refused")
	err = d.Send(context.Background(), "ana@example.com", TemplateStatusChanged, sampleEventData())
	var dep *DependencyFailure
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, "smtp", dep.Dependency)
}

type fakeSMS struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeSMS) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	return &twilioApi.ApiV2010Message{}, f.err
}

func TestSMSDispatcher(t *testing.T) {
	set, err := LoadTemplates()
	require.NoError(t, err)
	client := &fakeSMS{}
	d := &SMSDispatcher{client: client, from: "+15550000000", templates: set}

	require.NoError(t, d.Send(context.Background(), "+15551234567", TemplateRepairReady, sampleEventData()))
	require.Len(t, client.params, 1)
	assert.Equal(t, "+15551234567", *client.params[0].To)
	assert.Equal(t, "+15550000000", *client.params[0].From)
	assert.Contains(t, *client.params[0].Body, "ready for pickup")
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error { return nil }

func TestEventPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p := &EventPublisher{ch: ch, exchange: "repairs_topic"}

	require.NoError(t, p.Send(context.Background(), "repair.ready", TemplateRepairReady, sampleEventData()))
	assert.Equal(t, "repairs_topic", ch.exchange)
	assert.Equal(t, "repair.ready", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)

	var body struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, TemplateRepairReady, body.Event)
	assert.Equal(t, "REP-240110-0042", body.Data["ticket_number"])

	ch.err = errors.New("channel closed")
	var dep *DependencyFailure
	assert.ErrorAs(t, p.Send(context.Background(), "repair.ready", TemplateRepairReady, nil), &dep)
	require.NoError(t, p.Close())
}
