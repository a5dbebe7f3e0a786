package services

import (
	"math"

	"github.com/terraincognita07/nutrilog/internal/models"
)

const waterMLPerKg = 30

var activityFactors = map[string]float64{
	models.ActivityMinimal:  1.2,
	models.ActivityLight:    1.375,
	models.ActivityModerate: 1.55,
	models.ActivityHigh:     1.725,
	models.ActivityExtreme:  1.9,
}

var goalMultipliers = map[string]float64{
	models.GoalLose:     0.85,
	models.GoalMaintain: 1.0,
	models.GoalGain:     1.15,
}

// ProfileMetrics are the inputs of the Mifflin-St Jeor calorie estimate.
// Callers validate ranges before computing targets.
type ProfileMetrics struct {
	WeightKg      float64
	HeightCm      float64
	Age           int
	Sex           string
	ActivityLevel string
	Goal          string
}

func ActivityFactor(level string) float64 {
	if factor, ok := activityFactors[level]; ok {
		return factor
	}
	return activityFactors[models.ActivityMinimal]
}

func GoalMultiplier(goal string) float64 {
	if multiplier, ok := goalMultipliers[goal]; ok {
		return multiplier
	}
	return 1.0
}

func BasalMetabolicRate(metrics ProfileMetrics) float64 {
	bmr := 10*metrics.WeightKg + 6.25*metrics.HeightCm - 5*float64(metrics.Age)
	if metrics.Sex == models.SexMale {
		return bmr + 5
	}
	return bmr - 161
}

// CalorieTarget is BMR scaled by activity and goal, rounded half away from zero.
func CalorieTarget(metrics ProfileMetrics) int {
	tdee := BasalMetabolicRate(metrics) * ActivityFactor(metrics.ActivityLevel)
	return int(math.Round(tdee * GoalMultiplier(metrics.Goal)))
}

func WaterTarget(weightKg float64) int {
	return int(math.Round(weightKg * waterMLPerKg))
}
