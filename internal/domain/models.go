package domain

import "time"

type Permission struct {
	Key         PermissionKey `json:"key"`
	Label       string        `json:"label"`
	Group       string        `json:"group,omitempty"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

type Role struct {
	Key         RoleKey         `json:"key"`
	Label       string          `json:"label"`
	Description string          `json:"description,omitempty"`
	Permissions []PermissionKey `json:"permissions"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	EmployeeID   *int64    `json:"employeeId"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Employee struct {
	EmployeeID   int64  `json:"employee_id"`
	Name         string `json:"name"`
	DepartmentID string `json:"department_id,omitempty"`
	SectionID    string `json:"section_id,omitempty"`
}

type Notification struct {
	NotificationID int64     `json:"notification_id"`
	EmployeeID     int64     `json:"employee_id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	TicketID       int64     `json:"ticket_id,omitempty"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}
