package service

import (
	"context"                   // Request scoped cancellation for store calls
	"errors"                    // Error inspection
	"fmt"                       // Error wrapping
	"smart_bin/internal/domain" // Importing domain models
	"strings"                   // Trimming config values
	"time"                      // Reading timestamps

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// BinRef selects a bin by number, or the default bin when none was given
type BinRef struct {
	Number   string // Trimmed bin number, meaningful only when explicit
	explicit bool   // A bin number was supplied, even a blank one
}

// DefaultBin refers to the designated default bin
func DefaultBin() BinRef {
	return BinRef{}
}

// ByNumber refers to the bin holding number; only an empty number means the default bin.
// A blank number is still an explicit reference and matches no bin.
func ByNumber(number string) BinRef {
	if number == "" {
		return DefaultBin()
	}
	return BinRef{Number: strings.TrimSpace(number), explicit: true}
}

// IsDefault reports whether the reference resolves to the default bin
func (r BinRef) IsDefault() bool {
	return !r.explicit
}

// LevelUpdate is the outcome of ApplyLevelUpdate
type LevelUpdate struct {
	Bin              domain.Bin // Bin state after the update
	OldLevel         int        // Level before the update
	EmptyingDetected bool       // Old level was critical and the new one is at or below the emptied threshold
	HistoryRecorded  bool       // A critical history row was appended
}

// Snapshot is a bin together with its most recent critical readings
type Snapshot struct {
	Bin     domain.Bin       // Current bin state
	History []domain.History // Newest first, at most domain.HistoryReadLimit rows
}

// ConfigChange carries the optional new values for a bin's configuration
type ConfigChange struct {
	BinNumber *string // New bin number, nil when not submitted
	Location  *string // New location, nil when not submitted
}

// ConfigOutcome tells whether a configuration request wrote anything
type ConfigOutcome int

const (
	ConfigUpdated  ConfigOutcome = iota // At least one field changed and was committed
	ConfigNoChange                      // Nothing submitted differed from the stored values
)

// BinService applies sensor readings and configuration changes to bins
type BinService struct {
	db  *gorm.DB         // Store handle
	now func() time.Time // Clock, replaceable in tests
}

// NewBinService creates a BinService backed by db
func NewBinService(db *gorm.DB) *BinService {
	return &BinService{db: db, now: time.Now}
}

// WithClock returns a copy of the service using now as its clock
func (s *BinService) WithClock(now func() time.Time) *BinService {
	cp := *s
	cp.now = now
	return &cp
}

// ApplyLevelUpdate records a fill level reading for the referenced bin.
// The bin row update and the optional history insert commit together.
func (s *BinService) ApplyLevelUpdate(ctx context.Context, ref BinRef, level *int) (*LevelUpdate, error) {
	if level == nil || !domain.ValidLevel(*level) {
		return nil, ErrInvalidLevel
	}
	newLevel := *level
	now := s.now().UTC()
	var result LevelUpdate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bin, err := findBin(tx, ref)
		if err != nil {
			return err
		}
		result.OldLevel = bin.CurrentLevel
		result.EmptyingDetected = domain.IsEmptying(bin.CurrentLevel, newLevel)
		bin.CurrentLevel = newLevel
		bin.LastUpdated = now
		if result.EmptyingDetected {
			bin.LastEmptiedAt = &now // Never cleared once set
		}
		// Only the level columns are written; number and location are left as stored
		if err := tx.Model(bin).Select("CurrentLevel", "LastUpdated", "LastEmptiedAt").Updates(bin).Error; err != nil {
			return err
		}
		// Every critical reading is kept, even when the previous one was critical too
		if domain.IsCritical(newLevel) {
			entry := domain.History{BinID: bin.ID, Timestamp: now, Level: newLevel}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			result.HistoryRecorded = true
		}
		result.Bin = *bin
		return nil
	})
	if err != nil {
		return nil, classify(err, "apply level update")
	}
	if result.EmptyingDetected {
		logrus.WithFields(logrus.Fields{
			"bin_number": result.Bin.BinNumber,     // Bin that was emptied
			"old_level":  result.OldLevel,          // Level before the reading
			"new_level":  newLevel,                 // Level reported by the sensor
			"timestamp":  now.Format(time.RFC3339), // Detection time
		}).Info("Bin emptying detected")
	}
	return &result, nil
}

// GetBinSnapshot returns the referenced bin and its latest critical readings
func (s *BinService) GetBinSnapshot(ctx context.Context, ref BinRef) (*Snapshot, error) {
	db := s.db.WithContext(ctx)
	bin, err := findBin(db, ref)
	if err != nil {
		return nil, classify(err, "load bin")
	}
	var history []domain.History
	// Newest first; rows sharing a timestamp keep insertion order reversed
	if err := db.Where("bin_id = ?", bin.ID).
		Order("timestamp desc").
		Order("id desc").
		Limit(domain.HistoryReadLimit).
		Find(&history).Error; err != nil {
		return nil, classify(err, "load history")
	}
	return &Snapshot{Bin: *bin, History: history}, nil
}

// UpdateBinConfig renames and/or relocates the referenced bin.
// Any rejected field aborts the whole change; unchanged values report ConfigNoChange.
func (s *BinService) UpdateBinConfig(ctx context.Context, ref BinRef, change ConfigChange) (ConfigOutcome, error) {
	outcome := ConfigNoChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bin, err := findBin(tx, ref)
		if err != nil {
			return err
		}
		updates := map[string]any{} // Columns that actually change
		var rejected []error
		if change.BinNumber != nil {
			number := strings.TrimSpace(*change.BinNumber)
			switch {
			case number == "":
				rejected = append(rejected, &FieldError{Field: FieldBinNumber, Err: ErrEmptyField})
			case number != bin.BinNumber:
				var taken int64
				if err := tx.Model(&domain.Bin{}).
					Where("bin_number = ? AND id <> ?", number, bin.ID).
					Count(&taken).Error; err != nil {
					return err
				}
				if taken > 0 {
					rejected = append(rejected, &FieldError{Field: FieldBinNumber, Value: number, Err: ErrDuplicateBinNumber})
				} else {
					updates["bin_number"] = number
				}
			}
		}
		if change.Location != nil {
			location := strings.TrimSpace(*change.Location)
			switch {
			case location == "":
				rejected = append(rejected, &FieldError{Field: FieldLocation, Err: ErrEmptyField})
			case location != bin.Location:
				updates["location"] = location
			}
		}
		if len(rejected) > 0 {
			return errors.Join(rejected...)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(bin).Updates(updates).Error; err != nil {
			// A concurrent rename can still hit the unique index
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				number, _ := updates["bin_number"].(string)
				return &FieldError{Field: FieldBinNumber, Value: number, Err: ErrDuplicateBinNumber}
			}
			return err
		}
		outcome = ConfigUpdated
		return nil
	})
	if err != nil {
		return ConfigNoChange, classify(err, "update bin config")
	}
	if outcome == ConfigUpdated {
		logrus.WithFields(logrus.Fields{
			"bin_ref":    ref.Number,              // Empty for the default bin
			"bin_number": change.BinNumber != nil, // Rename requested
			"location":   change.Location != nil,  // Relocation requested
		}).Info("Bin configuration updated")
	}
	return outcome, nil
}

// findBin resolves ref inside tx
func findBin(tx *gorm.DB, ref BinRef) (*domain.Bin, error) {
	var bin domain.Bin
	query := tx.Where("is_default = ?", true)
	if !ref.IsDefault() {
		query = tx.Where("bin_number = ?", ref.Number)
	}
	if err := query.First(&bin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBinNotFound
		}
		return nil, err
	}
	return &bin, nil
}

// classify passes validation errors through and wraps everything else as ErrPersistence
func classify(err error, op string) error {
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
