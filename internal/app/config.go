package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/mockgrader/internal/data/db"
	aggregate "github.com/yungbote/mockgrader/internal/jobs/pipeline/aggregate_attempts"
	finalize "github.com/yungbote/mockgrader/internal/jobs/pipeline/finalize_attempts"
	score "github.com/yungbote/mockgrader/internal/jobs/pipeline/score_answers"
	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/objectstore"
)

const (
	TranscriberOpenAI    = "openai"
	TranscriberGCPSpeech = "gcp_speech"

	GraderOpenAI = "openai"
	GraderGemini = "gemini"

	EmailSendGrid = "sendgrid"
	EmailPostmark = "postmark"
)

type Config struct {
	Job         string `validate:"required,oneof=score_answers finalize_attempts aggregate_attempts"`
	PostgresDSN string
	AutoMigrate bool
	Environment string

	Storage       objectstore.Config
	StoragePrefix string
	DownloadsDir  string
	DeleteAudio   bool

	Transcriber string `validate:"required,oneof=openai gcp_speech"`
	Grader      string `validate:"required,oneof=openai gemini"`
	Email       string `validate:"required,oneof=sendgrid postmark"`

	BatchLimit int `validate:"gte=0"`

	ResultsBaseURL string `validate:"omitempty,url"`
	BrandName      string
	SupportEmail   string `validate:"omitempty,email"`
	LogoURL        string `validate:"omitempty,url"`

	RedisAddr      string
	LeaseTTL       time.Duration `validate:"gte=0"`
	PushgatewayURL string        `validate:"omitempty,url"`
}

// ConfigError reports every problem found at once so an operator can fix the
// environment in one pass.
type ConfigError struct {
	Job     string
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid config"
	}
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("%s config: %s", e.Job, strings.Join(parts, "; "))
}

func (e *ConfigError) empty() bool {
	return e == nil || (len(e.Missing) == 0 && len(e.Invalid) == 0)
}

func (e *ConfigError) missing(name string) {
	for _, m := range e.Missing {
		if m == name {
			return
		}
	}
	e.Missing = append(e.Missing, name)
}

var validate = validator.New()

// LoadConfig reads the environment for jobType and checks that everything the
// job touches is configured. Variables only other jobs need are not required.
func LoadConfig(jobType string) (Config, error) {
	cfg := Config{
		Job:         strings.TrimSpace(jobType),
		PostgresDSN: db.DSNFromEnv(),
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", false),
		Environment: envutil.First("APP_ENV", "ENVIRONMENT"),

		StoragePrefix: envutil.String("STORAGE_PREFIX", ""),
		DownloadsDir:  envutil.String("DOWNLOADS_FOLDER", os.TempDir()),
		DeleteAudio:   envutil.Bool("DELETE_AUDIO_AFTER_GRADING", false),

		Transcriber: strings.ToLower(envutil.String("TRANSCRIBER_PROVIDER", TranscriberOpenAI)),
		Grader:      strings.ToLower(envutil.String("GRADER_PROVIDER", GraderOpenAI)),
		Email:       strings.ToLower(envutil.String("EMAIL_PROVIDER", EmailSendGrid)),

		BatchLimit: envutil.Int("JOB_BATCH_LIMIT", 0),

		ResultsBaseURL: envutil.String("RESULTS_BASE_URL", ""),
		BrandName:      envutil.String("BRAND_NAME", "NAATI Ninja"),
		SupportEmail:   envutil.String("SUPPORT_EMAIL", "support@naatininja.com"),
		LogoURL:        envutil.String("EMAIL_LOGO_URL", ""),

		RedisAddr:      envutil.String("REDIS_ADDR", ""),
		LeaseTTL:       envutil.Seconds("JOB_LEASE_TTL_SECONDS", 3600),
		PushgatewayURL: envutil.String("PUSHGATEWAY_URL", ""),
	}

	cerr := &ConfigError{Job: cfg.Job}
	if err := validate.Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return cfg, err
		}
		for _, fe := range verrs {
			cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}

	if cfg.PostgresDSN == "" {
		cerr.missing("POSTGRES_URL")
	}

	switch cfg.Job {
	case score.JobType:
		requireScoring(&cfg, cerr)
	case finalize.JobType:
		requireNotification(&cfg, cerr)
	case aggregate.JobType:
		// database only
	}

	if !cerr.empty() {
		return cfg, cerr
	}
	return cfg, nil
}

func requireScoring(cfg *Config, cerr *ConfigError) {
	storageCfg, err := objectstore.ResolveConfigFromEnv()
	cfg.Storage = storageCfg
	if err != nil {
		cerr.Invalid = append(cerr.Invalid, err.Error())
	}
	switch storageCfg.Mode {
	case objectstore.ModeS3:
		for _, name := range []string{"S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY"} {
			if envutil.String(name, "") == "" {
				cerr.missing(name)
			}
		}
		if envutil.First("STORAGE_BUCKET", "S3_BUCKET") == "" {
			cerr.missing("STORAGE_BUCKET")
		}
		// Recordings live under a folder in the bucket; bare keys never resolve.
		if strings.Trim(cfg.StoragePrefix, "/ ") == "" {
			cerr.missing("STORAGE_PREFIX")
		}
	case objectstore.ModeGCS, objectstore.ModeGCSEmulator:
		if envutil.First("GCS_BUCKET_NAME", "STORAGE_BUCKET") == "" {
			cerr.missing("GCS_BUCKET_NAME")
		}
	}

	if cfg.Transcriber == TranscriberOpenAI || cfg.Grader == GraderOpenAI {
		if envutil.String("OPENAI_API_KEY", "") == "" {
			cerr.missing("OPENAI_API_KEY")
		}
	}
	if cfg.Grader == GraderGemini && envutil.First("GEMINI_API_KEY", "GOOGLE_API_KEY") == "" {
		cerr.missing("GEMINI_API_KEY")
	}
}

func requireNotification(cfg *Config, cerr *ConfigError) {
	if envutil.String("CLERK_SECRET_KEY", "") == "" {
		cerr.missing("CLERK_SECRET_KEY")
	}
	switch cfg.Email {
	case EmailSendGrid:
		if envutil.First("SENDGRID_API_KEY", "SENGRID_API_KEY") == "" {
			cerr.missing("SENDGRID_API_KEY")
		}
		if envutil.First("SENDGRID_FROM_EMAIL", "EMAIL_USER") == "" {
			cerr.missing("SENDGRID_FROM_EMAIL")
		}
	case EmailPostmark:
		if envutil.String("POSTMARK_API_TOKEN", "") == "" {
			cerr.missing("POSTMARK_API_TOKEN")
		}
	}
	if cfg.ResultsBaseURL == "" {
		cerr.missing("RESULTS_BASE_URL")
	}
}
