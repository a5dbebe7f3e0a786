package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	initDataHashKey     = "hash"
	initDataAuthDateKey = "auth_date"
	initDataUserKey     = "user"
	webAppDataKey       = "WebAppData"

	DefaultInitDataMaxAge = 24 * time.Hour
	DefaultClockSkew      = time.Minute
	DefaultDisplayName    = "User"
)

var (
	ErrEmptyInitData     = errors.New("init data is empty")
	ErrMalformedInitData = errors.New("init data is malformed")
	ErrMissingSignature  = errors.New("init data signature is missing")
	ErrSignatureMismatch = errors.New("init data signature mismatch")
	ErrExpired           = errors.New("init data is expired")
	ErrAuthDateInFuture  = errors.New("init data auth_date is in the future")
	ErrMalformedUser     = errors.New("init data user is malformed")
	ErrMissingBotToken   = errors.New("bot token is required")
)

// Identity is the caller as vouched for by a verified init data payload.
type Identity struct {
	UserID       int64
	DisplayName  string
	Username     string
	LanguageCode string
}

// InitDataFields holds decoded key/value pairs of one init data string.
type InitDataFields map[string]string

// ParseInitData splits raw on '&' and '=' and query-unescapes every key and
// value once. Duplicate or empty keys are rejected.
func ParseInitData(raw string) (InitDataFields, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInitData
	}

	fields := InitDataFields{}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrMalformedInitData, rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrMalformedInitData, key, err)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty key", ErrMalformedInitData)
		}
		if _, exists := fields[key]; exists {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrMalformedInitData, key)
		}
		fields[key] = value
	}

	if len(fields) == 0 {
		return nil, ErrEmptyInitData
	}
	return fields, nil
}

// DataCheckString renders every field except hash as key=value, sorted by
// key and joined with '\n'. Values are the decoded values.
func DataCheckString(fields InitDataFields) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if key == initDataHashKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for index, key := range keys {
		if index > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(fields[key])
	}
	return builder.String()
}

// SecretKey derives the per-bot HMAC key from the bot token.
func SecretKey(botToken string) []byte {
	return hmacSHA256([]byte(webAppDataKey), []byte(botToken))
}

// Signature returns the hex signature the host platform would attach to fields.
func Signature(botToken string, fields InitDataFields) string {
	return hex.EncodeToString(hmacSHA256(SecretKey(botToken), []byte(DataCheckString(fields))))
}

type InitDataVerifier struct {
	botToken  string
	maxAge    time.Duration
	clockSkew time.Duration
}

func NewInitDataVerifier(botToken string, maxAge time.Duration, clockSkew time.Duration) (*InitDataVerifier, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, ErrMissingBotToken
	}
	if maxAge <= 0 {
		maxAge = DefaultInitDataMaxAge
	}
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &InitDataVerifier{botToken: botToken, maxAge: maxAge, clockSkew: clockSkew}, nil
}

// Verify authenticates raw init data and extracts the caller identity.
func (verifier *InitDataVerifier) Verify(raw string, now time.Time) (Identity, error) {
	fields, err := ParseInitData(raw)
	if err != nil {
		return Identity{}, err
	}

	receivedHash, ok := fields[initDataHashKey]
	if !ok || strings.TrimSpace(receivedHash) == "" {
		return Identity{}, ErrMissingSignature
	}
	received, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(receivedHash)))
	if err != nil {
		return Identity{}, ErrSignatureMismatch
	}

	calculated := hmacSHA256(SecretKey(verifier.botToken), []byte(DataCheckString(fields)))
	if !hmac.Equal(calculated, received) {
		return Identity{}, ErrSignatureMismatch
	}

	if err := verifier.checkAuthDate(fields, now); err != nil {
		return Identity{}, err
	}

	return parseIdentity(fields[initDataUserKey])
}

func (verifier *InitDataVerifier) checkAuthDate(fields InitDataFields, now time.Time) error {
	rawAuthDate, ok := fields[initDataAuthDateKey]
	if !ok {
		return nil
	}
	seconds, err := strconv.ParseInt(strings.TrimSpace(rawAuthDate), 10, 64)
	if err != nil || seconds <= 0 {
		return fmt.Errorf("%w: auth_date %q", ErrMalformedInitData, rawAuthDate)
	}

	authDate := time.Unix(seconds, 0)
	if authDate.Sub(now) > verifier.clockSkew {
		return ErrAuthDateInFuture
	}
	if now.Sub(authDate) > verifier.maxAge {
		return ErrExpired
	}
	return nil
}

type initDataUser struct {
	ID           *json.Number `json:"id"`
	FirstName    string       `json:"first_name"`
	Username     string       `json:"username"`
	LanguageCode string       `json:"language_code"`
}

func parseIdentity(rawUser string) (Identity, error) {
	if strings.TrimSpace(rawUser) == "" {
		return Identity{}, ErrMalformedUser
	}

	decoder := json.NewDecoder(strings.NewReader(rawUser))
	decoder.UseNumber()
	user := initDataUser{}
	if err := decoder.Decode(&user); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedUser, err)
	}
	if user.ID == nil {
		return Identity{}, fmt.Errorf("%w: missing id", ErrMalformedUser)
	}
	userID, err := strconv.ParseInt(user.ID.String(), 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("%w: id %q is not a positive integer", ErrMalformedUser, user.ID.String())
	}

	displayName := strings.TrimSpace(user.FirstName)
	if displayName == "" {
		displayName = strings.TrimSpace(user.Username)
	}
	if displayName == "" {
		displayName = DefaultDisplayName
	}

	return Identity{
		UserID:       userID,
		DisplayName:  displayName,
		Username:     strings.TrimSpace(user.Username),
		LanguageCode: strings.TrimSpace(user.LanguageCode),
	}, nil
}

func hmacSHA256(key []byte, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
