package model

// Role is the user_type column.
type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleTransporter Role = "transporter"
	RoleUser        Role = "user"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleTransporter, RoleUser, RoleAdmin:
		return true
	}
	return false
}

// SelfRegistrable reports whether an account of this type may be created
// directly through registration. Farmers apply, admins are bootstrapped.
func (r Role) SelfRegistrable() bool {
	return r == RoleTransporter || r == RoleUser
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationDenied   ApplicationStatus = "denied"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationDenied:
		return true
	}
	return false
}

type PackageStatus string

const (
	PackagePending   PackageStatus = "pending"
	PackagePickedUp  PackageStatus = "picked_up"
	PackageInTransit PackageStatus = "in_transit"
	PackageDelivered PackageStatus = "delivered"
	PackageFailed    PackageStatus = "failed"
)

var PackageStatuses = []PackageStatus{
	PackagePending, PackagePickedUp, PackageInTransit, PackageDelivered, PackageFailed,
}

func (s PackageStatus) Valid() bool {
	for _, v := range PackageStatuses {
		if s == v {
			return true
		}
	}
	return false
}

const OrderPending = "pending"
