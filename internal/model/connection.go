package model

import "time"

// Connection holds the credentials for one remote Jira/Xray site. Each
// connection maps to a Jira Cloud base URL plus the Xray GraphQL API that
// fronts the same site, and is exposed as an API namespace.
type Connection struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Label        string `json:"label" db:"label"`
	JiraURL      string `json:"jira_url" db:"jira_url"`
	XrayURL      string `json:"xray_url" db:"xray_url"`
	Email        string `json:"email" db:"email"`
	APIToken     string `json:"-" db:"api_token"` // Jira basic-auth token, never expose
	ClientID     string `json:"client_id,omitempty" db:"client_id"`
	ClientSecret string `json:"-" db:"client_secret"` // Xray OAuth secret, never expose
	ReadOnly     bool   `json:"read_only" db:"read_only"`
	IsActive     bool   `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
