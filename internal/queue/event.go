// Package queue defines the outbound mail payload exchanged over RabbitMQ
// plus its publisher and consumer.
package queue

import "time"

// DefaultMailQueue is the durable queue carrying customer emails.
const DefaultMailQueue = "booking.mail"

// Mail kinds.
const (
	KindConfirmationRequest = "confirmation_request"
	KindBookingConfirmed    = "booking_confirmed"
)

// Attachment is a file sent with an email.  Content is base64 in JSON.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// MailMessage is a fully rendered email.  Downstream consumers deliver it
// as is without querying the booking database.
type MailMessage struct {
	ID          string       `json:"id"`
	Kind        string       `json:"kind"`
	BookingID   string       `json:"booking_id"`
	ShowtimeID  string       `json:"showtime_id"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
