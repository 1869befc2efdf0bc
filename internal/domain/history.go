package domain

import "time" // Reading timestamp

// History Model, one row per critical reading
type History struct {
	ID        uint      `gorm:"primaryKey"`     // Primary key
	BinID     uint      `gorm:"not null;index"` // Foreign key to Bin
	Timestamp time.Time `gorm:"not null;index"` // When the reading was observed
	Level     int       `gorm:"not null"`       // Observed fill level
}

// TableName keeps the history table name singular
func (History) TableName() string {
	return "bin_history"
}
