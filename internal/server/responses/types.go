// Package responses defines API response types used by the portfolio HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/portfolio/internal/build"
	"git.home.luguber.info/inful/portfolio/internal/rebuild"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
}

// SuccessResponse acknowledges a mutation without a body of its own.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// VerifyResponse answers a session check.
type VerifyResponse struct {
	Authenticated bool      `json:"authenticated"`
	Username      string    `json:"username,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
}

// BuildStatusResponse reports the rebuild trigger state and the report of
// the live generated tree.
type BuildStatusResponse struct {
	Rebuild rebuild.Status `json:"rebuild"`
	Report  *build.Report  `json:"report,omitempty"`
}
