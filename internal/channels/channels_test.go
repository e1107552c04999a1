package channels

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap/zaptest"

	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/monitoring"
	"github.com/alexnthnz/plant-care/internal/queue"
	"github.com/alexnthnz/plant-care/internal/reminder"
)

func sampleMessage() queue.ReminderMessage {
	return queue.ReminderMessage{
		ID:               "p1:day-of:abc",
		PlantID:          "p1",
		PlantName:        "Monstera",
		Kind:             reminder.KindDayOf,
		Title:            "Time to water",
		Body:             "Monstera needs water today.",
		FireAt:           time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		NextWateringDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	}
}

type fakeChannel struct {
	channelType string
	err         error

	mu        sync.Mutex
	delivered []queue.ReminderMessage
}

func (f *fakeChannel) Deliver(_ context.Context, msg queue.ReminderMessage) (*DeliveryReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, msg)
	if f.err != nil {
		return failedReport(f.channelType, msg, f.err), f.err
	}
	return sentReport(f.channelType, msg, f.channelType+"-1"), nil
}

func (f *fakeChannel) GetChannelType() string { return f.channelType }

func TestChannelManager_DeliverFansOut(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	cm := NewChannelManager(metrics, zaptest.NewLogger(t))

	push := &fakeChannel{channelType: "push"}
	sms := &fakeChannel{channelType: "sms", err: errors.New("carrier rejected")}
	email := &fakeChannel{channelType: "email"}
	cm.RegisterChannel(push)
	cm.RegisterChannel(sms)
	cm.RegisterChannel(email)

	reports := cm.Deliver(context.Background(), sampleMessage())
	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}

	want := []struct {
		channel string
		status  DeliveryStatus
	}{
		{"email", StatusSent},
		{"push", StatusSent},
		{"sms", StatusFailed},
	}
	for i, w := range want {
		if reports[i].Channel != w.channel || reports[i].Status != w.status {
			t.Errorf("report %d = %s/%s, want %s/%s", i, reports[i].Channel, reports[i].Status, w.channel, w.status)
		}
		if reports[i].ReminderID != "p1:day-of:abc" {
			t.Errorf("report %d reminder id = %q", i, reports[i].ReminderID)
		}
	}

	for _, f := range []*fakeChannel{push, sms, email} {
		if len(f.delivered) != 1 {
			t.Errorf("%s delivered %d times, want 1", f.channelType, len(f.delivered))
		}
	}
	if got := testutil.ToFloat64(metrics.RemindersDelivered.WithLabelValues("push")); got != 1 {
		t.Errorf("push delivered metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DeliveriesFailed.WithLabelValues("sms", "provider_error")); got != 1 {
		t.Errorf("sms failed metric = %v, want 1", got)
	}
}

func TestChannelManager_NoChannels(t *testing.T) {
	cm := NewChannelManager(nil, zaptest.NewLogger(t))
	if reports := cm.Deliver(context.Background(), sampleMessage()); len(reports) != 0 {
		t.Fatalf("reports = %+v, want none", reports)
	}
}

func TestSMSChannel_Deliver(t *testing.T) {
	var gotPath, gotBody, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotBody = r.PostForm.Get("Body")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	ch := NewSMSChannel(config.TwilioConfig{
		AccountSID: "AC1",
		AuthToken:  "secret",
		FromNumber: "+15550000000",
		BaseURL:    srv.URL,
	}, "+15551111111", zaptest.NewLogger(t))

	report, err := ch.Deliver(context.Background(), sampleMessage())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if report.Status != StatusSent || report.ExternalID != "SM123" {
		t.Errorf("report = %+v", report)
	}
	if gotPath != "/2010-04-01/Accounts/AC1/Messages.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "AC1" {
		t.Errorf("basic auth user = %q", gotUser)
	}
	if !strings.Contains(gotBody, "Monstera needs water today.") {
		t.Errorf("body = %q", gotBody)
	}
}

func TestSMSChannel_DeliverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	ch := NewSMSChannel(config.TwilioConfig{AccountSID: "AC1", BaseURL: srv.URL}, "bogus", zaptest.NewLogger(t))

	report, err := ch.Deliver(context.Background(), sampleMessage())
	if err == nil {
		t.Fatal("Deliver succeeded, want error")
	}
	if report.Status != StatusFailed || !strings.Contains(report.ErrorMessage, "Invalid 'To' Phone Number") {
		t.Errorf("report = %+v", report)
	}
}

type fakeEmailSender struct {
	sent     []*mail.SGMailV3
	response *rest.Response
	err      error
}

func (f *fakeEmailSender) Send(email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	return f.response, f.err
}

func TestEmailChannel_Deliver(t *testing.T) {
	sender := &fakeEmailSender{response: &rest.Response{
		StatusCode: http.StatusAccepted,
		Headers:    map[string][]string{"X-Message-Id": {"sg-42"}},
	}}
	ch := &EmailChannel{
		client:    sender,
		config:    config.SendGridConfig{FromEmail: "reminders@plantcare.app"},
		recipient: "grower@example.com",
		logger:    zaptest.NewLogger(t),
	}

	report, err := ch.Deliver(context.Background(), sampleMessage())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if report.ExternalID != "sg-42" || report.Status != StatusSent {
		t.Errorf("report = %+v", report)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	m := sender.sent[0]
	if m.Subject != "Time to water" || m.Headers["X-Plant-ID"] != "p1" {
		t.Errorf("email subject=%q headers=%v", m.Subject, m.Headers)
	}
}

func TestEmailChannel_DeliverRejected(t *testing.T) {
	sender := &fakeEmailSender{response: &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}}
	ch := &EmailChannel{client: sender, recipient: "grower@example.com", logger: zaptest.NewLogger(t)}

	report, err := ch.Deliver(context.Background(), sampleMessage())
	if err == nil {
		t.Fatal("Deliver succeeded, want error")
	}
	if report.Status != StatusFailed {
		t.Errorf("status = %s, want failed", report.Status)
	}
}

type fakePushSender struct {
	sent []*messaging.Message
}

func (f *fakePushSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "projects/plantcare/messages/1", nil
}

func TestPushChannel_Deliver(t *testing.T) {
	sender := &fakePushSender{}
	ch := &PushChannel{client: sender, token: "device-token", logger: zaptest.NewLogger(t)}

	report, err := ch.Deliver(context.Background(), sampleMessage())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if report.ExternalID != "projects/plantcare/messages/1" {
		t.Errorf("external id = %q", report.ExternalID)
	}

	m := sender.sent[0]
	if m.Token != "device-token" || m.Notification.Title != "Time to water" {
		t.Errorf("message = %+v", m)
	}
	if m.Data["plantId"] != "p1" || m.Data["kind"] != "day-of" || m.Data["nextWateringDate"] != "2024-06-10T00:00:00Z" {
		t.Errorf("data = %v", m.Data)
	}
}
