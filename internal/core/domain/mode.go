package domain

import "strings"

// Mode is the role of the local agent.
type Mode string

const (
	// ModeServer forms or joins the server quorum.
	ModeServer Mode = "server"
	// ModeClient joins an existing quorum.
	ModeClient Mode = "client"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeServer:
		return ModeServer, nil
	case ModeClient:
		return ModeClient, nil
	default:
		return "", ErrInvalidMode.WithDetails(s)
	}
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}
