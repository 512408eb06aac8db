package directory

// User represents a user account on the remote directory service
type User struct {
	Name        string `json:"name"`
	DisplayName string `json:"display-name,omitempty"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
}

// Group represents a group on the remote directory service
type Group struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ValidationFactor is a client-identifying attribute bound to an SSO token.
// A token is only valid when re-validated with the same factors that were
// presented at issuance.
type ValidationFactor struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
