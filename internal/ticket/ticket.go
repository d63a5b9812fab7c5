// Package ticket renders the admission ticket attached to confirmation
// emails.
package ticket

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"strings"

	"github.com/iliyamo/festival-booking/internal/model"
)

// ReferencePrefix starts every printed booking reference.
const ReferencePrefix = "BFF"

// Reference derives the printed booking reference from the booking id and
// customer email, e.g. BFF-1A2B3C4D-9F0E1D.
func Reference(b *model.Booking) string {
	short := strings.ToUpper(strings.ReplaceAll(b.ID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	sum := sha256.Sum256([]byte(b.ID + "|" + b.Customer.Email))
	return fmt.Sprintf("%s-%s-%s", ReferencePrefix, short, strings.ToUpper(hex.EncodeToString(sum[:3])))
}

var ticketTmpl = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html lang="it">
<head><meta charset="utf-8"><title>{{.Festival}} - {{.Reference}}</title></head>
<body style="font-family: sans-serif">
<h1>{{.Festival}}</h1>
<h2>{{.Title}}</h2>
<p><strong>{{.When}}</strong></p>
{{if .Address}}<p>{{.Address}}</p>{{end}}
<table>
<tr><td>Name</td><td>{{.Name}}</td></tr>
<tr><td>Seats</td><td>{{.Seats}}</td></tr>
<tr><td>Reference</td><td><code>{{.Reference}}</code></td></tr>
</table>
<p>Show this ticket at the entrance.</p>
</body>
</html>
`))

// HTMLRenderer renders a printable HTML ticket.
type HTMLRenderer struct {
	Festival string
}

// NewHTMLRenderer returns a renderer branded with the festival name.
func NewHTMLRenderer(festival string) *HTMLRenderer {
	if festival == "" {
		festival = "Festival"
	}
	return &HTMLRenderer{Festival: festival}
}

// Render produces the ticket of a confirmed booking.
func (r *HTMLRenderer) Render(b *model.Booking, st *model.Showtime) (*model.Ticket, error) {
	if b.Status != model.StatusConfirmed || len(b.AssignedSeats) == 0 {
		return nil, fmt.Errorf("booking %s has no assigned seats", b.ID)
	}
	ref := Reference(b)
	title := st.EventTitle
	if title == "" {
		title = "Screening"
	}
	var buf bytes.Buffer
	err := ticketTmpl.Execute(&buf, map[string]string{
		"Festival":  r.Festival,
		"Title":     title,
		"When":      st.Description(),
		"Address":   st.LocationAddress,
		"Name":      b.Customer.Name,
		"Seats":     strings.Join(b.AssignedSeats, ", "),
		"Reference": ref,
	})
	if err != nil {
		return nil, fmt.Errorf("render ticket %s: %w", b.ID, err)
	}
	return &model.Ticket{
		Reference:   ref,
		Filename:    "ticket-" + ref + ".html",
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}
