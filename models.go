package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Theme is the UI theme preference
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// DashboardLayout is the dashboard density preference
type DashboardLayout string

const (
	LayoutDefault  DashboardLayout = "default"
	LayoutCompact  DashboardLayout = "compact"
	LayoutExpanded DashboardLayout = "expanded"
)

// Notifications holds per channel opt-ins
type Notifications struct {
	Email bool `json:"email" bson:"email"`
	SMS   bool `json:"sms" bson:"sms"`
	Push  bool `json:"push" bson:"push"`
}

// Preferences are user editable settings
type Preferences struct {
	Theme           Theme           `json:"theme" bson:"theme"`
	DashboardLayout DashboardLayout `json:"dashboardLayout" bson:"dashboardLayout"`
	Notifications   Notifications   `json:"notifications" bson:"notifications"`
}

// DefaultPreferences returns the preferences new accounts start with
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:           ThemeSystem,
		DashboardLayout: LayoutDefault,
		Notifications: Notifications{
			Email: true,
			SMS:   false,
			Push:  true,
		},
	}
}

// User is the user model. PasswordHash is never serialized.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID   `bun:"id,pk,type:uuid" json:"id"`
	Email         string      `bun:"email,notnull,unique" json:"email"`
	Name          string      `bun:"name,notnull" json:"name"`
	Phone         string      `bun:"phone" json:"phone,omitempty"`
	EmployeeID    string      `bun:"employee_id,notnull,unique" json:"employeeId"`
	PasswordHash  string      `bun:"password_hash,notnull" json:"-"`
	Role          Role        `bun:"role,notnull" json:"role"`
	IsActive      bool        `bun:"is_active,notnull" json:"isActive"`
	EmailVerified bool        `bun:"email_verified,notnull" json:"emailVerified"`
	LastLogin     *time.Time  `bun:"last_login,nullzero" json:"lastLogin,omitempty"`
	Preferences   Preferences `bun:"preferences,type:json" json:"preferences"`
	CreatedAt     time.Time   `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time   `bun:"updated_at,notnull" json:"updatedAt"`
}

// NewUser returns a user with defaults applied and inputs normalized
func NewUser(name, email, employeeID, phone string) *User {
	u := &User{
		Name:        name,
		Email:       email,
		EmployeeID:  employeeID,
		Phone:       phone,
		Role:        DefaultRole,
		IsActive:    true,
		Preferences: DefaultPreferences(),
	}
	u.Normalize()
	return u
}

// Normalize trims text fields and lower cases the email
func (u *User) Normalize() {
	u.Email = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	u.EmployeeID = strings.TrimSpace(u.EmployeeID)
	u.Phone = strings.TrimSpace(u.Phone)
	if u.Role == "" {
		u.Role = DefaultRole
	}
}

// Sanitized returns a copy without the password hash
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// NormalizeEmail is used both on write and on lookup so that email
// comparisons are case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
