package rbac

type Role string
type Action string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
	RolePartner    Role = "partner"
)

const (
	// ActionFile covers citizen operations: filing complaints, voting, commenting.
	ActionFile Action = "file"
	// ActionModerate covers admin review: status updates, strikes, assignment, blocking.
	ActionModerate Action = "moderate"
	// ActionProvision covers superadmin provisioning: staff accounts, zones, roles.
	ActionProvision Action = "provision"
	// ActionWorkflow covers the assigned-partner workflow: accept, reject, resolve.
	ActionWorkflow Action = "workflow"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleSuperAdmin:
		return action == ActionFile || action == ActionModerate || action == ActionProvision
	case RoleAdmin:
		return action == ActionFile || action == ActionModerate
	case RolePartner:
		return action == ActionFile || action == ActionWorkflow
	case RoleUser:
		return action == ActionFile
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleUser, RoleAdmin, RoleSuperAdmin, RolePartner:
		return Role(role)
	default:
		return RoleUser
	}
}
