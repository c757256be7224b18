package models

import "time"

type User struct {
	ID                int64
	Email             string
	FirstName         string
	LastName          string
	Address           string
	Phone             string
	Age               int
	PasswordHash      []byte
	NoOfFilesUploaded int
	IsActive          bool
	IsAdmin           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastLogin         *time.Time
}

// RemainingSlots reports how many more files fit under limit, never negative.
func (u User) RemainingSlots(limit int) int {
	remaining := limit - u.NoOfFilesUploaded
	if remaining < 0 {
		return 0
	}
	return remaining
}
