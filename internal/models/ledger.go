package models

import "time"

// Meal is an append-only ledger row.
type Meal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index:idx_meals_user_created,priority:1" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	Calories  int       `gorm:"not null" json:"calories"`
	CreatedAt time.Time `gorm:"not null;index:idx_meals_user_created,priority:2" json:"created_at"`
}

func (Meal) TableName() string {
	return "meals"
}

// WaterEntry is an append-only ledger row.
type WaterEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index:idx_water_user_created,priority:1" json:"user_id"`
	VolumeML  int       `gorm:"column:volume_ml;not null" json:"volume_ml"`
	CreatedAt time.Time `gorm:"not null;index:idx_water_user_created,priority:2" json:"created_at"`
}

func (WaterEntry) TableName() string {
	return "water_intake"
}

// DayLedger is the read view behind one daily report. It is not persisted.
type DayLedger struct {
	Profile      Profile
	HasProfile   bool
	Meals        []Meal
	WaterTotalML int
}
