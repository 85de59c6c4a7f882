package domain

const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

// Principal is the already-authenticated actor behind a call. It is resolved
// by the auth middleware from token claims and passed explicitly into every
// service call; services never reach into ambient session state.
type Principal struct {
	ID    string
	Email string
	Role  string
}

func IsKnownRole(role string) bool {
	switch role {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}
