package models

// Category is an expense category reference row
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Status is an expense status reference row
type Status struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Role is a user role reference row
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is a known user of the system
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	RoleID int64  `json:"role_id"`
	Role   string `json:"role,omitempty"`
}
