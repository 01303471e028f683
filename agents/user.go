package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/user"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// UserAgent owns the User bounded context (spec.md §4.5). It stores
// operator identity rows other entities reference as an actor id; it does
// not authenticate anyone or hash credentials (spec.md §1 Non-goals) — any
// password hash a caller supplies is stored verbatim, opaque to this agent.
type UserAgent struct {
	users user.Repository
}

// NewUserAgent constructs a UserAgent.
func NewUserAgent(users user.Repository) *UserAgent {
	return &UserAgent{users: users}
}

// Register adds every User agent tool to reg.
func (a *UserAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "user.create_user",
			OwningAgent: "user",
			Description: "Create a new operator identity.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"username": {"type": "string"},
					"display_name": {"type": "string"},
					"role": {"type": "string"},
					"is_active": {"type": "boolean"}
				},
				"required": ["username", "display_name", "role"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createUser,
		},
		{
			Name:        "user.list_users",
			OwningAgent: "user",
			Description: "List operator identities.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"offset": {"type": "integer"},
					"limit": {"type": "integer"}
				}
			}`),
			Handler: a.listUsers,
		},
		{
			Name:        "user.update_user",
			OwningAgent: "user",
			Description: "Update an operator identity's display name, role, or active status.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"display_name": {"type": "string"},
					"role": {"type": "string"},
					"is_active": {"type": "boolean"}
				},
				"required": ["id"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.updateUser,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type createUserArgs struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	IsActive    *bool  `json:"is_active"`
}

func (a *UserAgent) createUser(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createUserArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	active := true
	if args.IsActive != nil {
		active = *args.IsActive
	}
	u, err := a.users.Create(ctx, user.User{
		ID:          uuid.NewString(),
		Username:    args.Username,
		DisplayName: args.DisplayName,
		Role:        args.Role,
		Active:      active,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return u, nil
}

type listUsersArgs struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func (a *UserAgent) listUsers(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listUsersArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 500
	}
	results, err := a.users.List(ctx, domain.Page{Offset: args.Offset, Limit: limit})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}

type updateUserArgs struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
}

func (a *UserAgent) updateUser(ctx context.Context, raw json.RawMessage) (any, error) {
	var args updateUserArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	u, err := a.users.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if args.DisplayName != nil {
		u.DisplayName = *args.DisplayName
	}
	if args.Role != nil {
		u.Role = *args.Role
	}
	if args.IsActive != nil {
		u.Active = *args.IsActive
	}
	updated, err := a.users.Update(ctx, u)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return updated, nil
}
