package models

import "time"

type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(128);not null" json:"-"`
	// "user" for now; kept in the token so permission checks survive the
	// addition of staff roles without re-issuing credentials.
	Role      string    `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }
