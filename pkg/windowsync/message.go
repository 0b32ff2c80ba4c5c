// Package windowsync keeps independently rendered viewer windows in step.
//
// Windows exchange three messages. A newly opened pop-out announces itself
// with READY to its opener. A PDF viewer is told to jump with
// NAVIGATE_TO_PAGE. A window that cannot reach the PDF viewer directly asks
// the relay (the main window) to forward a jump with NAVIGATE_PDF.
//
// Delivery is best-effort: sends never block, nothing is acknowledged or
// retried, and messages for closed or unregistered windows are dropped.
// Message origin is not authenticated.
package windowsync

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/agentstation/fillmap/pkg/errors"
)

// MessageType names a wire message.
type MessageType string

// Wire message types.
const (
	TypeReady          MessageType = "READY"
	TypeNavigateToPage MessageType = "NAVIGATE_TO_PAGE"
	TypeNavigatePDF    MessageType = "NAVIGATE_PDF"
)

// Role is the part a window plays.
type Role string

// Window roles. RoleMain is the relay's own pane; it registers only on
// transports where the main window is remote.
const (
	RolePDF         Role = "pdf"
	RoleSpreadsheet Role = "spreadsheet"
	RoleMain        Role = "main"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePDF, RoleSpreadsheet, RoleMain:
		return true
	}
	return false
}

// Message is one cross-window message.
type Message struct {
	Type MessageType `json:"type"`
	Role Role        `json:"role,omitempty"`
	Page int         `json:"page,omitempty"`
}

// Ready announces a window's role.
func Ready(role Role) Message {
	return Message{Type: TypeReady, Role: role}
}

// NavigateToPage asks a PDF viewer to jump to page.
func NavigateToPage(page int) Message {
	return Message{Type: TypeNavigateToPage, Page: page}
}

// NavigatePDF asks the relay to forward a jump to the PDF viewer.
func NavigatePDF(page int) Message {
	return Message{Type: TypeNavigatePDF, Page: page}
}

// Validate checks that the payload fits the type.
func (m Message) Validate() error {
	switch m.Type {
	case TypeReady:
		if !m.Role.Valid() {
			return errors.NewValidationError("role", m.Role, "unknown window role")
		}
	case TypeNavigateToPage, TypeNavigatePDF:
		if m.Page < 1 {
			return errors.NewValidationError("page", m.Page, "must be at least 1")
		}
	default:
		return errors.NewValidationError("type", m.Type, "unknown message type")
	}
	return nil
}

// String implements fmt.Stringer.
func (m Message) String() string {
	if m.Type == TypeReady {
		return fmt.Sprintf("%s(%s)", m.Type, m.Role)
	}
	return fmt.Sprintf("%s(%d)", m.Type, m.Page)
}

// Decode parses and validates a JSON message. Unknown fields are rejected.
func Decode(data []byte) (Message, error) {
	var m Message
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Message{}, errors.WrapParse("json", "", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Encode validates and serializes a message.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
