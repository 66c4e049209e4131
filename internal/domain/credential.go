package domain

import "strings"

// Credential is a stored account used only to produce an Identity at login.
type Credential struct {
	ID           int64
	Username     string
	PasswordHash string
	Roles        string
	Enabled      bool
}

// RoleList splits the comma-joined roles column, trimming blanks and dropping empties.
func (c *Credential) RoleList() []string {
	if c == nil || strings.TrimSpace(c.Roles) == "" {
		return nil
	}
	parts := strings.Split(c.Roles, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		if role := strings.TrimSpace(part); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
