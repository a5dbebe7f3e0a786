package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	MaxFoodImageBytes     = 8 << 20
	defaultAnalyzeTimeout = 30 * time.Second
)

var (
	ErrAnalyzerNotConfigured = errors.New("food analyzer is not configured")
	ErrAnalyzerUnavailable   = errors.New("food analyzer unavailable")
	ErrAnalyzerUnusable      = errors.New("food analyzer response unusable")
	ErrInvalidImage          = errors.New("invalid food image")
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
}

// FoodGuess is the analyzer's structured estimate for one photographed meal.
type FoodGuess struct {
	Name        string `json:"name"`
	Calories    int    `json:"calories"`
	Description string `json:"description"`
}

// FoodAnalyzer wraps the external vision model. Implementations return
// ErrAnalyzerUnavailable or ErrAnalyzerUnusable wrapped with detail.
type FoodAnalyzer interface {
	AnalyzeFoodImage(ctx context.Context, image []byte, mimeType string) (FoodGuess, error)
}

type PhotoService struct {
	analyzer FoodAnalyzer
	timeout  time.Duration
	observer Observer
	logger   zerolog.Logger
}

// NewPhotoService accepts a nil analyzer; every call then fails with
// ErrAnalyzerNotConfigured.
func NewPhotoService(analyzer FoodAnalyzer, timeout time.Duration, observer Observer, logger zerolog.Logger) *PhotoService {
	if timeout <= 0 {
		timeout = defaultAnalyzeTimeout
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &PhotoService{analyzer: analyzer, timeout: timeout, observer: observer, logger: logger}
}

func NormalizeImageType(image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrInvalidImage
	}
	if len(image) > MaxFoodImageBytes {
		return "", ErrInvalidImage
	}

	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if index := strings.IndexByte(normalized, ';'); index >= 0 {
		normalized = strings.TrimSpace(normalized[:index])
	}
	if normalized == "" {
		normalized = http.DetectContentType(image)
	}
	if normalized == "image/jpg" {
		normalized = "image/jpeg"
	}
	if _, ok := allowedImageTypes[normalized]; !ok {
		return "", ErrInvalidImage
	}
	return normalized, nil
}

func (service *PhotoService) Analyze(ctx context.Context, image []byte, mimeType string) (FoodGuess, error) {
	normalizedType, err := NormalizeImageType(image, mimeType)
	if err != nil {
		return FoodGuess{}, err
	}
	if service.analyzer == nil {
		service.observer.AnalyzerOutcome("not_configured")
		return FoodGuess{}, ErrAnalyzerNotConfigured
	}

	analyzeCtx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	started := time.Now()
	guess, err := service.analyzer.AnalyzeFoodImage(analyzeCtx, image, normalizedType)
	if err != nil {
		outcome := "unusable"
		if !errors.Is(err, ErrAnalyzerUnusable) {
			outcome = "unavailable"
			if !errors.Is(err, ErrAnalyzerUnavailable) {
				err = errors.Join(ErrAnalyzerUnavailable, err)
			}
		}
		service.observer.AnalyzerOutcome(outcome)
		service.logger.Warn().Err(err).Dur("elapsed", time.Since(started)).Msg("food analysis failed")
		return FoodGuess{}, err
	}

	guess, err = validateFoodGuess(guess)
	if err != nil {
		service.observer.AnalyzerOutcome("unusable")
		service.logger.Warn().Err(err).Msg("food analysis returned incomplete guess")
		return FoodGuess{}, err
	}

	service.observer.AnalyzerOutcome("ok")
	return guess, nil
}

func validateFoodGuess(guess FoodGuess) (FoodGuess, error) {
	guess.Name = strings.TrimSpace(guess.Name)
	guess.Description = strings.TrimSpace(guess.Description)
	switch {
	case guess.Name == "":
		return FoodGuess{}, errors.Join(ErrAnalyzerUnusable, errors.New("name is empty"))
	case guess.Description == "":
		return FoodGuess{}, errors.Join(ErrAnalyzerUnusable, errors.New("description is empty"))
	case guess.Calories < 0 || guess.Calories > maxMealCalories:
		return FoodGuess{}, errors.Join(ErrAnalyzerUnusable, errors.New("calories out of range"))
	}
	return guess, nil
}
