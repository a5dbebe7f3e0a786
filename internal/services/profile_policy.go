package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/terraincognita07/nutrilog/internal/models"
)

const (
	minProfileWeightKg   = 20
	maxProfileWeightKg   = 400
	minProfileHeightCm   = 80
	maxProfileHeightCm   = 260
	minProfileAge        = 10
	maxProfileAge        = 120
	minWaterTargetML     = 500
	maxWaterTargetML     = 10000
	maxProfileNameLength = 64
)

// ProfileInput is a profile submission before validation. Nil numbers are
// treated as missing.
type ProfileInput struct {
	WeightKg      *float64
	HeightCm      *float64
	Age           *float64
	Sex           string
	ActivityLevel string
	Goal          string
	WaterTargetML *float64
	NightShifts   bool
}

// NormalizedProfile is a validated ProfileInput.
type NormalizedProfile struct {
	Metrics       ProfileMetrics
	WaterTargetML int
	HasWaterGoal  bool
	NightShifts   bool
}

func NormalizeProfileInput(input ProfileInput) (NormalizedProfile, error) {
	weight, err := requireRange("weight_kg", input.WeightKg, minProfileWeightKg, maxProfileWeightKg)
	if err != nil {
		return NormalizedProfile{}, err
	}
	height, err := requireRange("height_cm", input.HeightCm, minProfileHeightCm, maxProfileHeightCm)
	if err != nil {
		return NormalizedProfile{}, err
	}
	age, err := requireRange("age", input.Age, minProfileAge, maxProfileAge)
	if err != nil {
		return NormalizedProfile{}, err
	}
	if age != math.Trunc(age) {
		return NormalizedProfile{}, invalidField("age", "must be a whole number")
	}

	sex := normalizeEnum(input.Sex)
	switch sex {
	case models.SexMale, models.SexFemale:
	case "":
		return NormalizedProfile{}, invalidField("sex", "required")
	default:
		return NormalizedProfile{}, invalidField("sex", "must be male or female")
	}

	activity := normalizeEnum(input.ActivityLevel)
	if activity == "" {
		return NormalizedProfile{}, invalidField("activity_level", "required")
	}
	if _, ok := activityFactors[activity]; !ok {
		return NormalizedProfile{}, invalidField("activity_level", "must be one of minimal, light, moderate, high, extreme")
	}

	goal := normalizeEnum(input.Goal)
	if goal == "" {
		goal = models.GoalMaintain
	}
	if _, ok := goalMultipliers[goal]; !ok {
		return NormalizedProfile{}, invalidField("goal", "must be one of lose, maintain, gain")
	}

	normalized := NormalizedProfile{
		Metrics: ProfileMetrics{
			WeightKg:      weight,
			HeightCm:      height,
			Age:           int(age),
			Sex:           sex,
			ActivityLevel: activity,
			Goal:          goal,
		},
		NightShifts: input.NightShifts,
	}

	if input.WaterTargetML != nil {
		water, err := requireRange("water_target_ml", input.WaterTargetML, minWaterTargetML, maxWaterTargetML)
		if err != nil {
			return NormalizedProfile{}, err
		}
		normalized.WaterTargetML = int(math.Round(water))
		normalized.HasWaterGoal = true
	}

	return normalized, nil
}

func requireRange(field string, value *float64, min float64, max float64) (float64, error) {
	if value == nil {
		return 0, invalidField(field, "required")
	}
	if math.IsNaN(*value) || math.IsInf(*value, 0) {
		return 0, invalidField(field, "must be a number")
	}
	if *value < min || *value > max {
		return 0, invalidField(field, rangeReason(min, max))
	}
	return *value, nil
}

func rangeReason(min float64, max float64) string {
	return "must be between " + strconv.FormatFloat(min, 'f', -1, 64) + " and " + strconv.FormatFloat(max, 'f', -1, 64)
}

func normalizeEnum(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
