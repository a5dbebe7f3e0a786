package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/nutrilog/internal/services"
)

func TestFlexibleNumberDecoding(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *float64
		invalid bool
	}{
		{name: "number", raw: `{"v":72.5}`, want: floatPtr(72.5)},
		{name: "numeric string", raw: `{"v":"180"}`, want: floatPtr(180)},
		{name: "decimal comma", raw: `{"v":"61,5"}`, want: floatPtr(61.5)},
		{name: "null", raw: `{"v":null}`},
		{name: "blank string", raw: `{"v":"  "}`},
		{name: "absent", raw: `{}`},
		{name: "word", raw: `{"v":"heavy"}`, invalid: true},
		{name: "bool", raw: `{"v":true}`, invalid: true},
		{name: "object", raw: `{"v":{"kg":70}}`, invalid: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			payload := struct {
				V *flexibleNumber `json:"v"`
			}{}
			require.NoError(t, json.Unmarshal([]byte(test.raw), &payload))

			value, err := payload.V.checked("v")
			if test.invalid {
				var validationErr *services.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, "v", validationErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, value)
		})
	}
}

func TestMealRequestPrefersNestedMeal(t *testing.T) {
	request := mealRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"flat","calories":1,"meal":{"name":"nested","calories":"320"}}`), &request))

	input, err := request.toInput()
	require.NoError(t, err)
	assert.Equal(t, "nested", input.Name)
	assert.Equal(t, floatPtr(320), input.Calories)

	flat := mealRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Каша","calories":250}`), &flat))
	flatInput, err := flat.toInput()
	require.NoError(t, err)
	assert.Equal(t, "Каша", flatInput.Name)
}

func TestProfileRequestAliases(t *testing.T) {
	request := profileRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"profile":{"weight":"70","height":175,"age":"29","sex":"male","activity":"high","night_shifts":true}}`), &request))

	input, err := request.toInput()
	require.NoError(t, err)
	assert.Equal(t, floatPtr(70), input.WeightKg)
	assert.Equal(t, floatPtr(175), input.HeightCm)
	assert.Equal(t, floatPtr(29), input.Age)
	assert.Equal(t, "high", input.ActivityLevel)
	assert.True(t, input.NightShifts)
	assert.Nil(t, input.WaterTargetML)

	canonical := profileRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"weight_kg":64,"weight":99,"activity_level":"light","activity":"extreme"}`), &canonical))
	canonicalInput, err := canonical.toInput()
	require.NoError(t, err)
	assert.Equal(t, floatPtr(64), canonicalInput.WeightKg)
	assert.Equal(t, "light", canonicalInput.ActivityLevel)
}

func TestRequestNumbersNameTheInvalidField(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "weight word", raw: `{"profile":{"weight_kg":"heavy","height_cm":170}}`, field: "weight_kg"},
		{name: "weight alias word", raw: `{"weight":"heavy"}`, field: "weight_kg"},
		{name: "height alias bool", raw: `{"height":true}`, field: "height_cm"},
		{name: "age word", raw: `{"weight_kg":70,"age":"thirty"}`, field: "age"},
		{name: "water target word", raw: `{"water_target_ml":"plenty"}`, field: "water_target_ml"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := profileRequest{}
			require.NoError(t, json.Unmarshal([]byte(test.raw), &request))

			_, err := request.toInput()
			var validationErr *services.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, test.field, validationErr.Field)
		})
	}

	meal := mealRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"meal":{"name":"Чай","calories":"lots"}}`), &meal))
	_, err := meal.toInput()
	var validationErr *services.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "calories", validationErr.Field)

	water := waterRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"volume_ml":"a glass"}`), &water))
	_, err = water.toInput()
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "volume_ml", validationErr.Field)
}

func TestBodyErrorFieldUsesTypeErrorPath(t *testing.T) {
	nested := mealRequest{}
	err := json.Unmarshal([]byte(`{"meal":{"name":42}}`), &nested)
	require.Error(t, err)
	assert.Equal(t, "name", bodyErrorField(err))

	flat := profileRequest{}
	err = json.Unmarshal([]byte(`{"night_shifts":"yes"}`), &flat)
	require.Error(t, err)
	assert.Equal(t, "night_shifts", bodyErrorField(err))

	err = json.Unmarshal([]byte(`{"meal":`), &nested)
	require.Error(t, err)
	assert.Equal(t, "body", bodyErrorField(err))
}

func TestDecodeImagePayload(t *testing.T) {
	image, mimeType, ok := decodeImagePayload(photoRequest{ImageBase64: "aGVsbG8="})
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), image)
	assert.Equal(t, defaultPhotoMimeType, mimeType)

	image, mimeType, ok = decodeImagePayload(photoRequest{ImageBase64: "aGVsbG8"})
	require.True(t, ok, "unpadded base64")
	assert.Equal(t, []byte("hello"), image)

	_, mimeType, ok = decodeImagePayload(photoRequest{ImageBase64: "data:image/png;base64,aGVsbG8="})
	require.True(t, ok)
	assert.Equal(t, "image/png", mimeType)

	_, mimeType, ok = decodeImagePayload(photoRequest{ImageBase64: "data:image/png;base64,aGVsbG8=", MimeType: "image/heic"})
	require.True(t, ok)
	assert.Equal(t, "image/heic", mimeType, "explicit mime type wins")

	for _, raw := range []string{"", "   ", "data:image/png;base64", "data:image/png;base64,", "@@@"} {
		_, _, ok := decodeImagePayload(photoRequest{ImageBase64: raw})
		assert.Falsef(t, ok, "expected %q to be rejected", raw)
	}
}

func TestInitDataFromBody(t *testing.T) {
	assert.Equal(t, "a=1", initDataFromBody([]byte(`{"initData":" a=1 "}`)))
	assert.Equal(t, "b=2", initDataFromBody([]byte(`{"init_data":"b=2"}`)))
	assert.Equal(t, "", initDataFromBody([]byte(`not json`)))
	assert.Equal(t, "", initDataFromBody(nil))
}

func floatPtr(value float64) *float64 {
	return &value
}
