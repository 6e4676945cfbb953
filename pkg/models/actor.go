package models

import "slices"

// Role of a pre-authenticated actor.
type Role string

const (
	RoleOperator Role = "operator"
	RoleAnalyst  Role = "analyst"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Capability is an explicit grant beyond the role defaults.
type Capability string

// CapabilityResubmitAny lets an actor resubmit submissions created by other operators.
const CapabilityResubmitAny Capability = "can_resubmit_any"

// Actor is the identity an upstream gateway has already authenticated.
type Actor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Role         Role         `json:"role"`
	Capabilities []Capability `json:"capabilities,omitempty"`
}

// Can reports whether the actor holds capability c.
func (a Actor) Can(c Capability) bool {
	return slices.Contains(a.Capabilities, c)
}

// DisplayName falls back to the id when no name was supplied.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}

	return a.ID
}
