package authz

import "context"

// Store is the data-access collaborator the engine reads resource facts
// from. Implementations return ErrNotFound for missing rows; any other
// error is treated as an evaluation failure and denies the request.
type Store interface {
	FindMembership(ctx context.Context, teamID, userID string) (*Membership, error)
	FindTeam(ctx context.Context, id string) (*Team, error)
	FindProject(ctx context.Context, id string) (*Project, error)
	FindTask(ctx context.Context, id string) (*Task, error)
}
