package api

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/terraincognita07/nutrilog/internal/i18n"
	"github.com/terraincognita07/nutrilog/internal/metrics"
	"github.com/terraincognita07/nutrilog/internal/ratelimit"
	"github.com/terraincognita07/nutrilog/internal/security"
	"github.com/terraincognita07/nutrilog/internal/services"
)

const defaultPhotoRatePerMinute = 6

type Handler struct {
	verifier     *security.InitDataVerifier
	profiles     *services.ProfileService
	ledger       *services.LedgerService
	reports      *services.ReportService
	photos       *services.PhotoService
	i18n         *i18n.Manager
	metrics      *metrics.Recorder
	photoLimiter ratelimit.Limiter
	logger       zerolog.Logger
	now          func() time.Time
}

// Dependencies carries everything the HTTP layer needs. Metrics and
// PhotoLimiter are optional.
type Dependencies struct {
	Verifier     *security.InitDataVerifier
	Profiles     *services.ProfileService
	Ledger       *services.LedgerService
	Reports      *services.ReportService
	Photos       *services.PhotoService
	I18n         *i18n.Manager
	Metrics      *metrics.Recorder
	PhotoLimiter ratelimit.Limiter
	Logger       zerolog.Logger
}

func NewHandler(deps Dependencies) (*Handler, error) {
	switch {
	case deps.Verifier == nil:
		return nil, errors.New("init data verifier is required")
	case deps.Profiles == nil, deps.Ledger == nil, deps.Reports == nil, deps.Photos == nil:
		return nil, errors.New("profile, ledger, report and photo services are required")
	case deps.I18n == nil:
		return nil, errors.New("i18n manager is required")
	}

	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	limiter := deps.PhotoLimiter
	if limiter == nil {
		limiter = ratelimit.NewLocal(defaultPhotoRatePerMinute)
	}

	return &Handler{
		verifier:     deps.Verifier,
		profiles:     deps.Profiles,
		ledger:       deps.Ledger,
		reports:      deps.Reports,
		photos:       deps.Photos,
		i18n:         deps.I18n,
		metrics:      recorder,
		photoLimiter: limiter,
		logger:       deps.Logger.With().Str("component", "api").Logger(),
		now:          time.Now,
	}, nil
}
