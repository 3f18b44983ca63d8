package valueobjects

import "fmt"

// Role is the author of a chat message. The set is closed.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ParseRole fails fast on anything outside the closed set.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return r, nil
	default:
		return "", fmt.Errorf("invalid message role: %s", s)
	}
}

func (r Role) String() string { return string(r) }
