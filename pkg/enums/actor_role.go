package enums

// ActorRole identifies who is acting on an order and who a notification targets.
type ActorRole string

const (
	ActorRoleAdmin    ActorRole = "admin"
	ActorRoleStore    ActorRole = "store"
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleSystem   ActorRole = "system"
)

var actorRoles = closedSet[ActorRole]{ActorRoleAdmin, ActorRoleStore, ActorRoleCustomer, ActorRoleSystem}

func (r ActorRole) String() string { return string(r) }

func (r ActorRole) IsValid() bool { return actorRoles.has(r) }
