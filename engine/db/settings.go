package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SettingPointsPerTick = "points_per_tick"
	SettingTickInterval  = "tick_interval"
)

// SettingSchema is one named numeric parameter. Single row per key so
// independent worker processes observe the same values without any
// in-process cache.
type SettingSchema struct {
	Key   string `gorm:"primaryKey"`
	Value int
}

type Settings struct {
	PointsPerTick int `json:"points_per_tick"`
	TickInterval  int `json:"tick_interval"`
}

// SeedSettings inserts the compiled-in defaults for any key not yet
// persisted. Existing rows are never overwritten, so stored values stay
// authoritative across restarts.
func SeedSettings(defaults Settings) error {
	rows := []SettingSchema{
		{Key: SettingPointsPerTick, Value: defaults.PointsPerTick},
		{Key: SettingTickInterval, Value: defaults.TickInterval},
	}
	return withRetry(func() error {
		result := db.Table("setting_schemas").Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		return result.Error
	})
}

// GetSettings reads every tick parameter. A missing key is a read
// failure, not a zero value, so callers fall back to their compiled-in
// defaults instead of acting on zeroes.
func GetSettings() (Settings, error) {
	var rows []SettingSchema
	result := db.Table("setting_schemas").Find(&rows)
	if result.Error != nil {
		return Settings{}, result.Error
	}
	var settings Settings
	found := make(map[string]bool)
	for _, row := range rows {
		switch row.Key {
		case SettingPointsPerTick:
			settings.PointsPerTick = row.Value
			found[row.Key] = true
		case SettingTickInterval:
			settings.TickInterval = row.Value
			found[row.Key] = true
		}
	}
	if !found[SettingPointsPerTick] || !found[SettingTickInterval] {
		return Settings{}, ErrSettingNotFound
	}
	return settings, nil
}

// UpdateSetting writes one key atomically. Readers observe either the
// old or the new value, never a partial write.
func UpdateSetting(key string, value int) error {
	return withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			row := SettingSchema{Key: key, Value: value}
			result := tx.Table("setting_schemas").Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&row)
			return result.Error
		})
	})
}
