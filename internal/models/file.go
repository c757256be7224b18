package models

import "time"

type File struct {
	ID         int64
	UserID     int64
	Name       string
	ObjectKey  string
	UploadedAt time.Time
}
