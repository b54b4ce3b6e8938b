package service

import "librarium/internal/api/models"

// ActorContext identifies who performs an operation. It is passed explicitly
// into operations that need it instead of being read from ambient session
// state; the loan engine itself takes no actor because authorization is a
// caller concern.
type ActorContext struct {
	UserID    string
	Role      string
	IP        string
	UserAgent string
}

func (a ActorContext) IsLibrarian() bool {
	return a.Role == models.RoleLibrarian
}
