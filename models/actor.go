package models

// ActorRole is the capability level carried in the auth token. Match
// mutations (events, declarations, undo) require at least scorekeeper;
// tournament administration requires organizer or admin.
type ActorRole string

const (
	RoleAdmin       ActorRole = "admin"
	RoleOrganizer   ActorRole = "organizer"
	RoleScorekeeper ActorRole = "scorekeeper"
)

func (r ActorRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleScorekeeper:
		return true
	}
	return false
}
