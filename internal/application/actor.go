package application

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID    string
	Role  Role
	Email string
	Name  string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin || a.Role == RoleSystem }

func (a Actor) Authenticated() bool { return a.ID != "" }

// Label is the value recorded as the history actor.
func (a Actor) Label() string {
	if a.Role == RoleSystem {
		return "system:" + a.ID
	}
	return a.ID
}

// System returns the actor used by provider callbacks and other internal flows.
func System(name string) Actor { return Actor{ID: name, Role: RoleSystem} }
