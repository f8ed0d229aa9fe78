package constants

const (
	NGO        = "ngo"
	Government = "government"
	Corporate  = "corporate"
)

// ValidRoles is the set of roles a user can sign in as.
var ValidRoles = []string{NGO, Government, Corporate}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
