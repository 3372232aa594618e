package models

import "time"

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleHost  = "host"
	// RoleGuest is given to self-registered accounts. It opens no staff
	// route until an admin assigns another role.
	RoleGuest = "guest"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleHost, RoleGuest:
		return true
	}
	return false
}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255); not null" json:"name"`
	Email     string    `gorm:"type:varchar(255); unique;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255); not null" json:"-"`
	Role      string    `gorm:"type:varchar(255); not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
