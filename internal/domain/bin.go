package domain

import "time" // Timestamps for level writes and emptying events

// Thresholds and limits shared by the bin engine and the HTTP surface
const (
	MinLevel          = 0   // Lowest accepted fill level
	MaxLevel          = 100 // Highest accepted fill level
	CriticalLevel     = 80  // Readings at or above this are kept in history
	EmptiedLevel      = 20  // A drop from critical to at or below this is an emptying event
	HistoryReadLimit  = 10  // Number of history rows returned with a snapshot
	DefaultBinNumber  = "P-001"
	DefaultBinAddress = "123 Rue de l'Exemple, 75000 Paris"
	DefaultBinLevel   = 10
)

// Bin Model
type Bin struct {
	ID            uint       `gorm:"primaryKey"`                    // Primary key
	BinNumber     string     `gorm:"size:50;uniqueIndex;not null"`  // Unique, human facing bin number
	Location      string     `gorm:"size:200;not null"`             // Street address of the bin
	CurrentLevel  int        `gorm:"not null;default:0"`            // Fill level in percent
	LastUpdated   time.Time  `gorm:"not null"`                      // Set on every level write
	LastEmptiedAt *time.Time `gorm:"column:last_emptied_timestamp"` // Set only when an emptying event is detected
	IsDefault     bool       `gorm:"not null;default:false;index"`  // Resolved when no bin number is supplied
	History       []History  `gorm:"constraint:OnDelete:CASCADE;"`  // Critical readings owned by the bin
}

// IsCritical reports whether level must be recorded in the critical history
func IsCritical(level int) bool {
	return level >= CriticalLevel
}

// IsEmptying reports whether a transition from old to level counts as the bin being emptied
func IsEmptying(old, level int) bool {
	return old >= CriticalLevel && level <= EmptiedLevel
}

// ValidLevel reports whether level is inside the accepted range
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}
