package security

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const queryIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// InitDataUser is the user descriptor embedded into signed init data.
type InitDataUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// SignInitData builds a URL-encoded init data string for user, signed with
// botToken the same way the host platform signs it. Extra fields are
// included in the signature.
func SignInitData(botToken string, user InitDataUser, authDate time.Time, extra map[string]string) (string, error) {
	if strings.TrimSpace(botToken) == "" {
		return "", ErrMissingBotToken
	}

	encodedUser, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}

	fields := InitDataFields{}
	for key, value := range extra {
		fields[key] = value
	}
	fields[initDataUserKey] = string(encodedUser)
	fields[initDataAuthDateKey] = strconv.FormatInt(authDate.Unix(), 10)
	if _, ok := fields["query_id"]; !ok {
		queryID, err := NewQueryID()
		if err != nil {
			return "", err
		}
		fields["query_id"] = queryID
	}
	delete(fields, initDataHashKey)

	fields[initDataHashKey] = Signature(botToken, fields)
	return EncodeInitData(fields), nil
}

// EncodeInitData renders fields as a sorted, query-escaped init data string.
func EncodeInitData(fields InitDataFields) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(fields[key]))
	}
	return strings.Join(parts, "&")
}

func NewQueryID() (string, error) {
	queryID, err := randomString(24, queryIDAlphabet)
	if err != nil {
		return "", fmt.Errorf("generate query id: %w", err)
	}
	return queryID, nil
}

var errEmptyAlphabet = errors.New("alphabet must not be empty")

// randomString returns an unbiased, cryptographically random string.
func randomString(length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", nil
	}
	if len(alphabet) == 0 {
		return "", errEmptyAlphabet
	}

	limit := big.NewInt(int64(len(alphabet)))
	value := make([]byte, length)
	for index := range value {
		position, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		value[index] = alphabet[position.Int64()]
	}
	return string(value), nil
}
