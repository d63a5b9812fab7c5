// Package notify renders customer emails and hands them to the mail queue.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/festival-booking/internal/model"
	"github.com/iliyamo/festival-booking/internal/queue"
)

// Publisher is satisfied by *queue.Publisher.
type Publisher interface {
	Publish(ctx context.Context, msg queue.MailMessage) error
}

// Mailer implements the booking engine's notification gateway on top of the
// RabbitMQ mail queue.
type Mailer struct {
	pub      Publisher
	from     string
	festival string
	now      func() time.Time
}

// NewMailer returns a Mailer sending from the given address.
func NewMailer(pub Publisher, from, festival string) *Mailer {
	if pub == nil {
		panic("nil publisher passed to NewMailer")
	}
	return &Mailer{pub: pub, from: from, festival: festival, now: time.Now}
}

var (
	requestTmpl = template.Must(template.New("request").Parse(`<p>Hello {{.Name}},</p>
<p>you asked for {{.Quantity}} seat(s) for <strong>{{.Title}}</strong>, {{.When}}.</p>
<p>Please confirm your booking within {{.Minutes}} minutes:</p>
<p><a href="{{.Link}}">Confirm booking</a></p>
<p>If you did not request this booking you can ignore this email.</p>
<p>{{.Festival}}</p>
`))

	confirmedTmpl = template.Must(template.New("confirmed").Parse(`<p>Hello {{.Name}},</p>
<p>your booking for <strong>{{.Title}}</strong>, {{.When}} is confirmed.</p>
<p>Seats: {{.Seats}}</p>
{{if .Reference}}<p>Reference: <code>{{.Reference}}</code>. Your ticket is attached.</p>{{end}}
<p>{{.Festival}}</p>
`))
)

// SendConfirmationRequest mails the confirmation link.  A publish error is
// returned to the caller, which rolls the booking back.
func (m *Mailer) SendConfirmationRequest(ctx context.Context, b *model.Booking, st *model.Showtime, link string) error {
	minutes := int(b.TokenExpiresAt.Sub(b.CreatedAt).Round(time.Minute) / time.Minute)
	html, err := render(requestTmpl, map[string]interface{}{
		"Name":     b.Customer.Name,
		"Quantity": b.RequestedQuantity,
		"Title":    title(st),
		"When":     st.Description(),
		"Minutes":  minutes,
		"Link":     link,
		"Festival": m.festival,
	})
	if err != nil {
		return err
	}
	return m.pub.Publish(ctx, m.message(queue.KindConfirmationRequest, b, "Confirm your booking - "+title(st), html, nil))
}

// SendBookingConfirmed mails the confirmation with the ticket attached when
// one was rendered.
func (m *Mailer) SendBookingConfirmed(ctx context.Context, b *model.Booking, st *model.Showtime, ticket *model.Ticket) error {
	ref := ""
	var attachments []queue.Attachment
	if ticket != nil {
		ref = ticket.Reference
		attachments = append(attachments, queue.Attachment{
			Filename:    ticket.Filename,
			ContentType: ticket.ContentType,
			Content:     ticket.Body,
		})
	}
	html, err := render(confirmedTmpl, map[string]interface{}{
		"Name":      b.Customer.Name,
		"Title":     title(st),
		"When":      st.Description(),
		"Seats":     strings.Join(b.AssignedSeats, ", "),
		"Reference": ref,
		"Festival":  m.festival,
	})
	if err != nil {
		return err
	}
	return m.pub.Publish(ctx, m.message(queue.KindBookingConfirmed, b, "Booking confirmed - "+title(st), html, attachments))
}

func (m *Mailer) message(kind string, b *model.Booking, subject, html string, att []queue.Attachment) queue.MailMessage {
	return queue.MailMessage{
		ID:          uuid.NewString(),
		Kind:        kind,
		BookingID:   b.ID,
		ShowtimeID:  b.ShowtimeID,
		From:        m.from,
		To:          b.Customer.Email,
		Subject:     subject,
		HTML:        html,
		Attachments: att,
		CreatedAt:   m.now().UTC(),
	}
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func title(st *model.Showtime) string {
	if st.EventTitle != "" {
		return st.EventTitle
	}
	return "your screening"
}
