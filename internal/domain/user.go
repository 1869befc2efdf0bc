package domain

// User Model
type User struct {
	ID           uint   `gorm:"primaryKey"`                   // Primary key
	Username     string `gorm:"size:80;uniqueIndex;not null"` // Unique username, stored lower-cased
	PasswordHash string `gorm:"size:255;not null"`            // bcrypt hash, never the plaintext
}
