package model

// Ticket is a rendered admission document attached to the confirmation
// email.
type Ticket struct {
	Reference   string // printed booking reference, e.g. BFF-1A2B3C4D-9F0E1D
	Filename    string
	ContentType string
	Body        []byte
}
