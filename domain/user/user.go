// Package user defines the User entity referenced by
// ConversationSession.UserID and as an actor id on audit-bearing writes.
// Authentication itself is out of scope (spec.md §1 Non-goals); this
// repository only stores the identity rows other entities point at.
package user

import (
	"context"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
)

type User struct {
	ID          string
	Username    string
	DisplayName string
	Role        string
	Active      bool
	CreatedAt   time.Time
}

// Repository persists User rows. Username is globally unique.
type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	List(ctx context.Context, page domain.Page) ([]User, error)
}
