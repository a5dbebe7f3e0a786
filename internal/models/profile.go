package models

import "time"

const (
	SexMale   = "male"
	SexFemale = "female"
)

const (
	ActivityMinimal  = "minimal"
	ActivityLight    = "light"
	ActivityModerate = "moderate"
	ActivityHigh     = "high"
	ActivityExtreme  = "extreme"
)

const (
	GoalLose     = "lose"
	GoalMaintain = "maintain"
	GoalGain     = "gain"
)

const (
	DefaultCalorieTarget = 2000
	DefaultWaterTargetML = 2500
)

// Profile is the one-per-user physiological profile. CalorieTarget and
// WaterTargetML are recomputed on every save.
type Profile struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	UserID        int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	DisplayName   string    `gorm:"not null;default:''" json:"display_name"`
	WeightKg      float64   `gorm:"not null" json:"weight_kg"`
	HeightCm      float64   `gorm:"not null" json:"height_cm"`
	Age           int       `gorm:"not null" json:"age"`
	Sex           string    `gorm:"not null" json:"sex"`
	ActivityLevel string    `gorm:"not null" json:"activity_level"`
	Goal          string    `gorm:"not null;default:maintain" json:"goal"`
	NightShifts   bool      `gorm:"not null;default:false" json:"night_shifts"`
	WaterTargetML int       `gorm:"column:water_target_ml;not null" json:"water_target_ml"`
	CalorieTarget int       `gorm:"not null" json:"calorie_target"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "user_profile"
}
