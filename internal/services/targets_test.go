package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terraincognita07/nutrilog/internal/models"
)

func referenceMetrics() ProfileMetrics {
	return ProfileMetrics{
		WeightKg:      80,
		HeightCm:      180,
		Age:           30,
		Sex:           models.SexMale,
		ActivityLevel: models.ActivityModerate,
		Goal:          models.GoalMaintain,
	}
}

func TestCalorieTargetReferenceProfile(t *testing.T) {
	metrics := referenceMetrics()

	assert.InDelta(t, 1905.0, BasalMetabolicRate(metrics), 1e-9)
	assert.Equal(t, 2953, CalorieTarget(metrics))
	assert.Equal(t, 2400, WaterTarget(metrics.WeightKg))
}

func TestCalorieTargetFemaleLoseProfile(t *testing.T) {
	metrics := ProfileMetrics{
		WeightKg:      60,
		HeightCm:      165,
		Age:           28,
		Sex:           models.SexFemale,
		ActivityLevel: models.ActivityLight,
		Goal:          models.GoalLose,
	}

	// 1330.25 * 1.375 * 0.85 = 1554.73
	assert.Equal(t, 1555, CalorieTarget(metrics))
	assert.Equal(t, 1800, WaterTarget(metrics.WeightKg))
}

func TestCalorieTargetIsMonotonicInWeight(t *testing.T) {
	metrics := referenceMetrics()
	previous := 0
	for weight := 20.0; weight <= 400; weight += 0.5 {
		metrics.WeightKg = weight
		current := CalorieTarget(metrics)
		if weight > 20 && current < previous {
			t.Fatalf("calorie target decreased at %.1f kg: %d < %d", weight, current, previous)
		}
		previous = current
	}
}

func TestCalorieTargetOrdersGoals(t *testing.T) {
	for _, activity := range []string{models.ActivityMinimal, models.ActivityLight, models.ActivityModerate, models.ActivityHigh, models.ActivityExtreme} {
		for _, sex := range []string{models.SexMale, models.SexFemale} {
			metrics := referenceMetrics()
			metrics.ActivityLevel = activity
			metrics.Sex = sex

			metrics.Goal = models.GoalLose
			lose := CalorieTarget(metrics)
			metrics.Goal = models.GoalMaintain
			maintain := CalorieTarget(metrics)
			metrics.Goal = models.GoalGain
			gain := CalorieTarget(metrics)

			assert.Less(t, lose, maintain, "%s/%s", activity, sex)
			assert.Less(t, maintain, gain, "%s/%s", activity, sex)
		}
	}
}

func TestActivityFactorTable(t *testing.T) {
	tests := map[string]float64{
		models.ActivityMinimal:  1.2,
		models.ActivityLight:    1.375,
		models.ActivityModerate: 1.55,
		models.ActivityHigh:     1.725,
		models.ActivityExtreme:  1.9,
		"couch":                 1.2,
		"":                      1.2,
	}
	for level, want := range tests {
		assert.Equal(t, want, ActivityFactor(level), level)
	}
	assert.Equal(t, 1.0, GoalMultiplier("bulk"))
}

func TestTargetsAreDeterministic(t *testing.T) {
	metrics := referenceMetrics()
	first := CalorieTarget(metrics)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, CalorieTarget(metrics))
	}
	assert.Equal(t, 2025, WaterTarget(67.5))
	assert.Equal(t, 2100, WaterTarget(70.01))
}
