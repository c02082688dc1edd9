package model

import "time"

// Setting is a persisted key/value pair (e.g. the last active group).
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}
