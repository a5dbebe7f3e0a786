package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/terraincognita07/nutrilog/internal/services"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	responseTextPath = "candidates.0.content.parts.0.text"
	maxErrorBodyLen  = 512
)

const foodPrompt = `You are a nutritionist. Identify the dish in the photo and estimate its energy value.
Answer with a single JSON object and nothing else:
{"name": "<short dish name>", "calories": <integer kcal for the whole portion>, "description": "<one sentence about the portion and main ingredients>"}`

var ErrMissingAPIKey = errors.New("gemini api key is required")

type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls the generateContent REST endpoint and implements
// services.FoodAnalyzer.
type Client struct {
	http  *resty.Client
	model string
}

func NewClient(options Options) (*Client, error) {
	apiKey := strings.TrimSpace(options.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(options.Model)
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", apiKey)
	if options.Timeout > 0 {
		httpClient.SetTimeout(options.Timeout)
	}

	return &Client{http: httpClient, model: model}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

func (client *Client) AnalyzeFoodImage(ctx context.Context, image []byte, mimeType string) (services.FoodGuess, error) {
	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: foodPrompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
			},
		}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json", Temperature: 0.2},
	}

	resp, err := client.http.R().
		SetContext(ctx).
		SetBody(&body).
		SetPathParam("model", client.model).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return services.FoodGuess{}, fmt.Errorf("%w: %w", services.ErrAnalyzerUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return services.FoodGuess{}, fmt.Errorf("%w: status %d: %s", services.ErrAnalyzerUnavailable, resp.StatusCode(), truncate(resp.String(), maxErrorBodyLen))
	}

	return ParseFoodGuess(resp.Body())
}

// ParseFoodGuess extracts the model's answer from a generateContent response.
func ParseFoodGuess(payload []byte) (services.FoodGuess, error) {
	if !gjson.ValidBytes(payload) {
		return services.FoodGuess{}, unusable("response is not json")
	}
	text := gjson.GetBytes(payload, responseTextPath)
	if !text.Exists() || strings.TrimSpace(text.String()) == "" {
		reason := gjson.GetBytes(payload, "promptFeedback.blockReason").String()
		if reason != "" {
			return services.FoodGuess{}, unusable("prompt blocked: " + reason)
		}
		return services.FoodGuess{}, unusable("response has no text")
	}

	answer := StripCodeFence(text.String())
	if !gjson.Valid(answer) {
		return services.FoodGuess{}, unusable("answer is not json")
	}
	parsed := gjson.Parse(answer)
	if parsed.IsArray() {
		parsed = parsed.Get("0")
	}
	if !parsed.IsObject() {
		return services.FoodGuess{}, unusable("answer is not an object")
	}

	name := strings.TrimSpace(parsed.Get("name").String())
	description := strings.TrimSpace(parsed.Get("description").String())
	if name == "" || description == "" {
		return services.FoodGuess{}, unusable("answer misses name or description")
	}
	calories, err := coerceCalories(parsed.Get("calories"))
	if err != nil {
		return services.FoodGuess{}, unusable(err.Error())
	}

	return services.FoodGuess{Name: name, Calories: calories, Description: description}, nil
}

// StripCodeFence removes a surrounding ```json fence if the model added one.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "json")
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func coerceCalories(value gjson.Result) (int, error) {
	var number float64
	switch value.Type {
	case gjson.Number:
		number = value.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value.String()), 64)
		if err != nil {
			return 0, fmt.Errorf("calories %q is not numeric", value.String())
		}
		number = parsed
	default:
		return 0, errors.New("calories missing")
	}
	if math.IsNaN(number) || math.IsInf(number, 0) || number < 0 {
		return 0, fmt.Errorf("calories %v out of range", number)
	}
	return int(math.Round(number)), nil
}

func unusable(reason string) error {
	return fmt.Errorf("%w: %s", services.ErrAnalyzerUnusable, reason)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
