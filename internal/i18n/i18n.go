package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	LangUK = "uk"
	LangEN = "en"

	tipKeyPrefix = "tip."
)

//go:embed locales/*.json
var embeddedLocales embed.FS

type Manager struct {
	defaultLanguage string
	locales         map[string]map[string]string
	tips            map[string][]string
	supported       []string
}

// NewManager loads the locales compiled into the binary.
func NewManager(defaultLanguage string) (*Manager, error) {
	locales, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	return NewManagerFromFS(defaultLanguage, locales)
}

func NewManagerFromFS(defaultLanguage string, locales fs.FS) (*Manager, error) {
	manager := &Manager{
		locales: map[string]map[string]string{},
		tips:    map[string][]string{},
	}

	entries, err := fs.ReadDir(locales, ".")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}

		language := strings.TrimSuffix(strings.ToLower(entry.Name()), path.Ext(entry.Name()))
		content, err := fs.ReadFile(locales, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", language, err)
		}

		messages := map[string]string{}
		if err := json.Unmarshal(content, &messages); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", language, err)
		}
		if len(messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", language)
		}

		manager.locales[language] = messages
		manager.tips[language] = collectTips(messages)
		manager.supported = append(manager.supported, language)
	}

	if len(manager.supported) == 0 {
		return nil, fmt.Errorf("no locales found")
	}
	if _, ok := manager.locales[LangUK]; !ok {
		return nil, fmt.Errorf("required locale %q missing", LangUK)
	}
	if _, ok := manager.locales[LangEN]; !ok {
		return nil, fmt.Errorf("required locale %q missing", LangEN)
	}

	sort.Strings(manager.supported)
	manager.defaultLanguage = LangUK
	manager.defaultLanguage = manager.NormalizeLanguage(defaultLanguage)
	return manager, nil
}

func (manager *Manager) DefaultLanguage() string {
	return manager.defaultLanguage
}

func (manager *Manager) SupportedLanguages() []string {
	result := make([]string, len(manager.supported))
	copy(result, manager.supported)
	return result
}

func (manager *Manager) NormalizeLanguage(raw string) string {
	normalized := normalizeLanguageTag(raw)
	if normalized == "" {
		return manager.defaultLanguage
	}
	if manager.isSupported(normalized) {
		return normalized
	}
	return manager.defaultLanguage
}

func (manager *Manager) DetectFromAcceptLanguage(raw string) string {
	for _, part := range strings.Split(raw, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		token = strings.TrimSpace(strings.Split(token, ";")[0])
		normalized := normalizeLanguageTag(token)
		if manager.isSupported(normalized) {
			return normalized
		}
	}
	return manager.defaultLanguage
}

func (manager *Manager) Translate(language string, key string) string {
	targetLanguage := manager.NormalizeLanguage(language)
	if value, ok := manager.locales[targetLanguage][key]; ok && strings.TrimSpace(value) != "" {
		return value
	}
	if value, ok := manager.locales[manager.defaultLanguage][key]; ok && strings.TrimSpace(value) != "" {
		return value
	}
	return key
}

func (manager *Manager) Translatef(language string, key string, args ...any) string {
	return fmt.Sprintf(manager.Translate(language, key), args...)
}

// DailyTips returns the tip rotation for language in key order. The slice
// is shared and must not be modified.
func (manager *Manager) DailyTips(language string) []string {
	if tips := manager.tips[manager.NormalizeLanguage(language)]; len(tips) > 0 {
		return tips
	}
	return manager.tips[manager.defaultLanguage]
}

// FormatDate renders day as "17 жовтня 2026" / "17 October 2026".
func (manager *Manager) FormatDate(language string, day time.Time) string {
	month := manager.Translate(language, fmt.Sprintf("month.%02d", int(day.Month())))
	return manager.Translatef(language, "date.format", day.Day(), month, day.Year())
}

func (manager *Manager) isSupported(language string) bool {
	if language == "" {
		return false
	}
	_, ok := manager.locales[language]
	return ok
}

func collectTips(messages map[string]string) []string {
	keys := make([]string, 0)
	for key, value := range messages {
		if strings.HasPrefix(key, tipKeyPrefix) && strings.TrimSpace(value) != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	tips := make([]string, 0, len(keys))
	for _, key := range keys {
		tips = append(tips, messages[key])
	}
	return tips
}

func normalizeLanguageTag(raw string) string {
	language := strings.ToLower(strings.TrimSpace(raw))
	if language == "" {
		return ""
	}
	language = strings.ReplaceAll(language, "_", "-")
	if separator := strings.Index(language, "-"); separator >= 0 {
		language = language[:separator]
	}
	return language
}
