// Package agent defines the closed set of market participant identities.
// Agents are routed by role, never by string comparison.
package agent

import "fmt"

// Role tags the two kinds of market participants.
type Role uint8

const (
	RoleSeller Role = iota
	RoleWholesaler
)

// ID identifies one agent: a role plus a 1-based index within that role.
type ID struct {
	Role  Role
	Index int
}

// Well-known agents. The first wholesaler keeps its bare name for
// compatibility with the canonical serialization schema.
var (
	Seller1     = ID{RoleSeller, 1}
	Seller2     = ID{RoleSeller, 2}
	Wholesaler  = ID{RoleWholesaler, 1}
	Wholesaler2 = ID{RoleWholesaler, 2}
)

// String returns the canonical name: Seller_1, Seller_2, Wholesaler, Wholesaler_2.
func (id ID) String() string {
	switch id.Role {
	case RoleSeller:
		return fmt.Sprintf("Seller_%d", id.Index)
	case RoleWholesaler:
		if id.Index == 1 {
			return "Wholesaler"
		}
		return fmt.Sprintf("Wholesaler_%d", id.Index)
	}
	return fmt.Sprintf("Unknown_%d_%d", id.Role, id.Index)
}

// IsSeller reports whether the agent carries the seller role.
func (id ID) IsSeller() bool { return id.Role == RoleSeller }

// IsWholesaler reports whether the agent carries the wholesaler role.
func (id ID) IsWholesaler() bool { return id.Role == RoleWholesaler }

// MarshalText makes IDs usable as JSON object keys and in log output.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical name back into an ID.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Parse converts a canonical agent name into an ID.
func Parse(name string) (ID, error) {
	switch name {
	case "Seller_1":
		return Seller1, nil
	case "Seller_2":
		return Seller2, nil
	case "Wholesaler":
		return Wholesaler, nil
	case "Wholesaler_2":
		return Wholesaler2, nil
	}
	var role string
	var idx int
	if n, err := fmt.Sscanf(name, "Seller_%d", &idx); n == 1 && err == nil {
		role = "seller"
	} else if n, err := fmt.Sscanf(name, "Wholesaler_%d", &idx); n == 1 && err == nil {
		role = "wholesaler"
	}
	switch role {
	case "seller":
		return ID{RoleSeller, idx}, nil
	case "wholesaler":
		return ID{RoleWholesaler, idx}, nil
	}
	return ID{}, fmt.Errorf("unknown agent name %q", name)
}
