package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/terraincognita07/nutrilog/internal/services"
)

// flexibleNumber accepts a JSON number, a numeric string or null. Mini-app
// forms post input values as strings. Anything else marks the number invalid
// so the request can name the field instead of failing as a whole.
type flexibleNumber struct {
	value   *float64
	invalid bool
}

func (number *flexibleNumber) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		number.value = nil
		return nil
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			number.invalid = true
			return nil
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
		if text == "" {
			number.value = nil
			return nil
		}
	}

	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		number.invalid = true
		return nil
	}
	number.value = &parsed
	return nil
}

// checked returns the parsed value or a ValidationError naming field.
func (number *flexibleNumber) checked(field string) (*float64, error) {
	if number != nil && number.invalid {
		return nil, &services.ValidationError{Field: field, Reason: "must be a number"}
	}
	return number.Ptr(), nil
}

func (number *flexibleNumber) Ptr() *float64 {
	if number == nil {
		return nil
	}
	return number.value
}

type mealFields struct {
	Name     string          `json:"name"`
	Calories *flexibleNumber `json:"calories"`
}

// mealRequest accepts {"meal":{...}} as sent by the mini-app and a flat
// object.
type mealRequest struct {
	mealFields
	Meal *mealFields `json:"meal"`
}

func (request mealRequest) toInput() (services.MealInput, error) {
	fields := request.mealFields
	if request.Meal != nil {
		fields = *request.Meal
	}
	calories, err := fields.Calories.checked("calories")
	if err != nil {
		return services.MealInput{}, err
	}
	return services.MealInput{Name: fields.Name, Calories: calories}, nil
}

type waterRequest struct {
	VolumeML *flexibleNumber `json:"volume_ml"`
}

func (request waterRequest) toInput() (services.WaterInput, error) {
	volume, err := request.VolumeML.checked("volume_ml")
	if err != nil {
		return services.WaterInput{}, err
	}
	return services.WaterInput{VolumeML: volume}, nil
}

type profileFields struct {
	WeightKg      *flexibleNumber `json:"weight_kg"`
	Weight        *flexibleNumber `json:"weight"`
	HeightCm      *flexibleNumber `json:"height_cm"`
	Height        *flexibleNumber `json:"height"`
	Age           *flexibleNumber `json:"age"`
	Sex           string          `json:"sex"`
	ActivityLevel string          `json:"activity_level"`
	Activity      string          `json:"activity"`
	Goal          string          `json:"goal"`
	WaterTargetML *flexibleNumber `json:"water_target_ml"`
	NightShifts   bool            `json:"night_shifts"`
}

type profileRequest struct {
	profileFields
	Profile *profileFields `json:"profile"`
}

func (request profileRequest) toInput() (services.ProfileInput, error) {
	fields := request.profileFields
	if request.Profile != nil {
		fields = *request.Profile
	}

	activity := fields.ActivityLevel
	if strings.TrimSpace(activity) == "" {
		activity = fields.Activity
	}
	weight, err := firstNumber("weight_kg", fields.WeightKg, fields.Weight)
	if err != nil {
		return services.ProfileInput{}, err
	}
	height, err := firstNumber("height_cm", fields.HeightCm, fields.Height)
	if err != nil {
		return services.ProfileInput{}, err
	}
	age, err := fields.Age.checked("age")
	if err != nil {
		return services.ProfileInput{}, err
	}
	water, err := fields.WaterTargetML.checked("water_target_ml")
	if err != nil {
		return services.ProfileInput{}, err
	}

	return services.ProfileInput{
		WeightKg:      weight,
		HeightCm:      height,
		Age:           age,
		Sex:           fields.Sex,
		ActivityLevel: activity,
		Goal:          fields.Goal,
		WaterTargetML: water,
		NightShifts:   fields.NightShifts,
	}, nil
}

// firstNumber returns the first present value. Aliases report errors under
// the canonical field name.
func firstNumber(field string, values ...*flexibleNumber) (*float64, error) {
	for _, value := range values {
		ptr, err := value.checked(field)
		if err != nil {
			return nil, err
		}
		if ptr != nil {
			return ptr, nil
		}
	}
	return nil, nil
}

type photoRequest struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}
