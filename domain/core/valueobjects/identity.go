package valueobjects

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh random identifier for memories, sessions and messages.
func NewID() string {
	return uuid.New().String()
}

// IsValidID reports whether id is a well-formed identifier.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// SemanticNamespace scopes every vector operation to one user. It can only
// be built from a non-empty user id, so a cross-user query cannot be
// expressed.
type SemanticNamespace struct {
	userID string
}

// NamespaceFor builds the namespace owned by userID.
func NamespaceFor(userID string) (SemanticNamespace, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SemanticNamespace{}, errors.New("namespace requires a user id")
	}
	return SemanticNamespace{userID: userID}, nil
}

// UserID returns the owner of the namespace.
func (n SemanticNamespace) UserID() string { return n.userID }

// Name is the storage-level collection name.
func (n SemanticNamespace) Name() string { return fmt.Sprintf("user_%s", n.userID) }

// IsZero reports an unbuilt namespace.
func (n SemanticNamespace) IsZero() bool { return n.userID == "" }
