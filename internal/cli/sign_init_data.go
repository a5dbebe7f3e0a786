package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/terraincognita07/nutrilog/internal/security"
)

type SignInitDataOptions struct {
	BotToken     string
	UserID       int64
	FirstName    string
	Username     string
	LanguageCode string
	AuthDate     time.Time
	StartParam   string
}

// RunSignInitDataCommand prints init data signed with the bot token, for
// calling the API from curl or a local client.
func RunSignInitDataCommand(options SignInitDataOptions, out io.Writer) error {
	if strings.TrimSpace(options.BotToken) == "" {
		return errors.New("bot token is required")
	}
	if options.UserID <= 0 {
		return errors.New("user id must be a positive integer")
	}
	authDate := options.AuthDate
	if authDate.IsZero() {
		authDate = time.Now()
	}

	var extra map[string]string
	if startParam := strings.TrimSpace(options.StartParam); startParam != "" {
		extra = map[string]string{"start_param": startParam}
	}

	raw, err := security.SignInitData(options.BotToken, security.InitDataUser{
		ID:           options.UserID,
		FirstName:    strings.TrimSpace(options.FirstName),
		Username:     strings.TrimSpace(options.Username),
		LanguageCode: strings.TrimSpace(options.LanguageCode),
	}, authDate, extra)
	if err != nil {
		return fmt.Errorf("sign init data: %w", err)
	}

	fmt.Fprintln(out, raw)
	return nil
}
