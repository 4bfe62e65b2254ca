package devices

// Device role names. Keep these stable; they are part of the auth contract.
//
// A user has exactly one primary device (the one running the calling
// engine) and any number of linked devices that mirror its call history.
const (
	RolePrimary = "primary"
	RoleLinked  = "linked"
)

func IsPrimary(role string) bool { return role == RolePrimary }

func IsKnownRole(role string) bool {
	return role == RolePrimary || role == RoleLinked
}
