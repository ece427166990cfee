package auth

import "time"

// Staff roles understood by the route table.
const (
	RoleAdmin              = "admin"
	RoleUserManagement     = "user_management"
	RoleCustomerView       = "customer_view"
	RoleOrderView          = "order_view"
	RoleProductView        = "product_view"
	RoleProductManage      = "product_manage"
	RoleLocalizationManage = "localization_manage"
	RoleAnalyticsView      = "analytics_view"
)

// AllRoles lists every known role.
var AllRoles = []string{
	RoleAdmin,
	RoleUserManagement,
	RoleCustomerView,
	RoleOrderView,
	RoleProductView,
	RoleProductManage,
	RoleLocalizationManage,
	RoleAnalyticsView,
}

// User represents a staff account.
type User struct {
	ID           string    `json:"id" yaml:"id"`
	Email        string    `json:"email" yaml:"email"`
	Name         string    `json:"name" yaml:"name"`
	PasswordHash string    `json:"-" yaml:"-"`
	Roles        []string  `json:"roles" yaml:"roles"`
	IsActive     bool      `json:"isActive" yaml:"isActive"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updatedAt"`
}
