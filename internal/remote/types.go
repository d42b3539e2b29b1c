package remote

import (
	"io"

	"echosync/internal/cases"
)

// CreateAck is the backend's acknowledgment of a created case.
type CreateAck struct {
	CaseID string `json:"caseId"`
}

// NewCase is the payload for creating a case. Video is optional; when set,
// the request is sent as multipart form data so the clip uploads alongside
// the metadata fields.
type NewCase struct {
	Case      cases.Case
	Video     io.Reader
	VideoName string
}

// User describes the authenticated account returned by the login endpoint.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
}

// Session is the result of a successful login.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type errorBody struct {
	Message string `json:"message"`
}
