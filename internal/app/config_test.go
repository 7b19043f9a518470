package app

import (
	"errors"
	"strings"
	"testing"
)

// clearEnv blanks every variable LoadConfig consults so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"POSTGRES_URL", "DATABASE_URL", "POSTGRES_HOST",
		"OBJECT_STORAGE_MODE", "STORAGE_EMULATOR_HOST", "GCS_BUCKET_NAME", "STORAGE_BUCKET", "S3_BUCKET",
		"S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "STORAGE_PREFIX",
		"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"TRANSCRIBER_PROVIDER", "GRADER_PROVIDER", "EMAIL_PROVIDER",
		"CLERK_SECRET_KEY", "SENDGRID_API_KEY", "SENGRID_API_KEY", "SENDGRID_FROM_EMAIL", "EMAIL_USER",
		"POSTMARK_API_TOKEN", "RESULTS_BASE_URL", "SUPPORT_EMAIL", "EMAIL_LOGO_URL",
		"JOB_BATCH_LIMIT", "PUSHGATEWAY_URL", "REDIS_ADDR",
	} {
		t.Setenv(name, "")
	}
}

func configError(t *testing.T, err error) *ConfigError {
	t.Helper()
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
	}
	return cerr
}

func TestLoadConfigAggregateNeedsOnlyDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/mock")

	cfg, err := LoadConfig("aggregate_attempts")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Transcriber != TranscriberOpenAI || cfg.Grader != GraderOpenAI || cfg.Email != EmailSendGrid {
		t.Fatalf("provider defaults: got %s/%s/%s", cfg.Transcriber, cfg.Grader, cfg.Email)
	}
	if cfg.DeleteAudio {
		t.Fatalf("DeleteAudio should default to false")
	}
}

func TestLoadConfigScoreListsEveryMissingVariable(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig("score_answers")
	cerr := configError(t, err)
	want := []string{"POSTGRES_URL", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "STORAGE_BUCKET", "STORAGE_PREFIX", "OPENAI_API_KEY"}
	if strings.Join(cerr.Missing, ",") != strings.Join(want, ",") {
		t.Fatalf("missing: want=%v got=%v", want, cerr.Missing)
	}
	if !strings.Contains(err.Error(), "score_answers config") {
		t.Fatalf("error text: got %q", err.Error())
	}
}

func TestLoadConfigScoreGCSWithGemini(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_URL", "postgres://localhost/mock")
	t.Setenv("OBJECT_STORAGE_MODE", "gcs")
	t.Setenv("GCS_BUCKET_NAME", "answers")
	t.Setenv("TRANSCRIBER_PROVIDER", "gcp_speech")
	t.Setenv("GRADER_PROVIDER", "Gemini")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := LoadConfig("score_answers")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Grader != GraderGemini || string(cfg.Storage.Mode) != "gcs" {
		t.Fatalf("cfg: grader=%s mode=%s", cfg.Grader, cfg.Storage.Mode)
	}
}

func TestLoadConfigFinalizeRequirements(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_URL", "postgres://localhost/mock")
	t.Setenv("EMAIL_PROVIDER", "postmark")

	_, err := LoadConfig("finalize_attempts")
	cerr := configError(t, err)
	want := "CLERK_SECRET_KEY,POSTMARK_API_TOKEN,RESULTS_BASE_URL"
	if got := strings.Join(cerr.Missing, ","); got != want {
		t.Fatalf("missing: want=%s got=%s", want, got)
	}

	t.Setenv("CLERK_SECRET_KEY", "sk")
	t.Setenv("POSTMARK_API_TOKEN", "pm")
	t.Setenv("RESULTS_BASE_URL", "https://app.example.com/results")
	if _, err := LoadConfig("finalize_attempts"); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
}

func TestLoadConfigRejectsUnknownValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_URL", "postgres://localhost/mock")
	t.Setenv("GRADER_PROVIDER", "claude")
	t.Setenv("PUSHGATEWAY_URL", "not a url")

	_, err := LoadConfig("purge_everything")
	cerr := configError(t, err)
	joined := strings.Join(cerr.Invalid, " ")
	for _, field := range []string{"Job", "Grader", "PushgatewayURL"} {
		if !strings.Contains(joined, field) {
			t.Fatalf("invalid should mention %s: %v", field, cerr.Invalid)
		}
	}
}

func TestLoadConfigScoreS3NeedsPrefix(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_URL", "postgres://localhost/mock")
	t.Setenv("S3_ENDPOINT", "https://proj.supabase.co/storage/v1/s3")
	t.Setenv("S3_ACCESS_KEY_ID", "ak")
	t.Setenv("S3_SECRET_ACCESS_KEY", "sk")
	t.Setenv("STORAGE_BUCKET", "recordings")
	t.Setenv("OPENAI_API_KEY", "oa")
	t.Setenv("STORAGE_PREFIX", " / ")

	_, err := LoadConfig("score_answers")
	cerr := configError(t, err)
	if got := strings.Join(cerr.Missing, ","); got != "STORAGE_PREFIX" {
		t.Fatalf("missing: want=STORAGE_PREFIX got=%s", got)
	}

	t.Setenv("STORAGE_PREFIX", "answers")
	cfg, err := LoadConfig("score_answers")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StoragePrefix != "answers" {
		t.Fatalf("prefix: got %q", cfg.StoragePrefix)
	}
}
