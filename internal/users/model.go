package users

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:150;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"size:150"`
	CreatedAt    time.Time
}
