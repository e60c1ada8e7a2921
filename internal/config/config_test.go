package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

const testSecret = "this-is-a-very-long-jwt-secret-for-testing-32+"

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("ENV_FILE", "")
}

// unsetEnv removes key for the duration of the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:   DriverPostgres,
			DSN:      "postgres://u:p@localhost:5432/testdb",
			MaxConns: 10,
			MinConns: 2,
		},
		Auth: AuthConfig{JWTSecret: testSecret},
		Log:  LogConfig{Level: "info", Format: "json", MaxSizeMB: 100},
		Progress: ProgressConfig{
			PassThreshold:  60,
			AnswerXP:       10,
			AwardPolicy:    "every_pass",
			SessionIdleTTL: 30 * time.Minute,
			ChangeChannel:  "catalog_changes",
		},
	}
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: "5s"
  write_timeout: "15s"
  idle_timeout: "30s"
  shutdown_timeout: "5s"

database:
  driver: "postgres"
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10
  min_conns: 2
  auto_migrate: true

auth:
  jwt_secret: "this-is-a-very-long-jwt-secret-for-testing-32+"
  jwt_issuer: "lingua-test"

log:
  level: "debug"
  format: "text"

rate_limit:
  rps: 5
  burst: 10

progress:
  pass_threshold: 70
  answer_xp: 15
  award_policy: "first_pass"
  session_idle_ttl: "10m"
  change_channel: "catalog_feed"
`

func TestLoad_ValidYAML(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeFile(t, dir, "config.yaml", validYAML))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("server addr = %q, want %q", cfg.Server.Addr(), "127.0.0.1:9090")
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server.read_timeout = %v, want %v", cfg.Server.ReadTimeout, 5*time.Second)
	}
	if cfg.Database.MaxConns != 10 {
		t.Errorf("database.max_conns = %d, want 10", cfg.Database.MaxConns)
	}
	if !cfg.Database.AutoMigrate {
		t.Error("database.auto_migrate should be true")
	}
	if cfg.Database.IsMemory() {
		t.Error("database driver should be postgres")
	}
	if cfg.Auth.JWTIssuer != "lingua-test" {
		t.Errorf("auth.jwt_issuer = %q", cfg.Auth.JWTIssuer)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("auth.access_token_ttl = %v, want 15m (default)", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.RateLimit.RPS != 5 || cfg.RateLimit.Burst != 10 {
		t.Errorf("rate_limit = %+v", cfg.RateLimit)
	}
	if cfg.Progress.PassThreshold != 70 {
		t.Errorf("progress.pass_threshold = %d, want 70", cfg.Progress.PassThreshold)
	}
	if cfg.Progress.AnswerXP != 15 {
		t.Errorf("progress.answer_xp = %d, want 15", cfg.Progress.AnswerXP)
	}
	if cfg.Progress.Policy() != domain.AwardFirstPass {
		t.Errorf("progress.award_policy = %q", cfg.Progress.AwardPolicy)
	}
	if cfg.Progress.SessionIdleTTL != 10*time.Minute {
		t.Errorf("progress.session_idle_ttl = %v", cfg.Progress.SessionIdleTTL)
	}
	if cfg.Progress.ChangeChannel != "catalog_feed" {
		t.Errorf("progress.change_channel = %q", cfg.Progress.ChangeChannel)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeFile(t, dir, "config.yaml", validYAML))
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PROGRESS_ANSWER_XP", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("server.port = %d, want 3000 (ENV override)", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q (ENV override)", cfg.Log.Level, "warn")
	}
	if cfg.Progress.AnswerXP != 25 {
		t.Errorf("progress.answer_xp = %d, want 25 (ENV override)", cfg.Progress.AnswerXP)
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Progress.PassThreshold != domain.DefaultPassThreshold {
		t.Errorf("progress.pass_threshold = %d, want default", cfg.Progress.PassThreshold)
	}
	if cfg.Progress.AnswerXP != domain.DefaultAnswerXP {
		t.Errorf("progress.answer_xp = %d, want default", cfg.Progress.AnswerXP)
	}
	if cfg.Progress.Policy() != domain.AwardEveryPass {
		t.Errorf("progress.award_policy = %q, want every_pass", cfg.Progress.AwardPolicy)
	}
	if cfg.Progress.ChangeChannel != "catalog_changes" {
		t.Errorf("progress.change_channel = %q", cfg.Progress.ChangeChannel)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")
	unsetEnv(t, "DATABASE_DRIVER")
	unsetEnv(t, "DATABASE_DSN")
	t.Setenv("LOG_LEVEL", "error")
	unsetEnv(t, "PROGRESS_PASS_THRESHOLD")

	dir := t.TempDir()
	t.Chdir(dir)
	envFile := writeFile(t, dir, "dev.env",
		"DATABASE_DRIVER=memory\nLOG_LEVEL=debug\nPROGRESS_PASS_THRESHOLD=80\n")
	t.Setenv("ENV_FILE", envFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Database.IsMemory() {
		t.Errorf("database.driver = %q, want memory from env file", cfg.Database.Driver)
	}
	if cfg.Progress.PassThreshold != 80 {
		t.Errorf("progress.pass_threshold = %d, want 80 from env file", cfg.Progress.PassThreshold)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log.level = %q, env file must not override existing env", cfg.Log.Level)
	}
}

func TestLoad_DotEnvDefaultPathOptional(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	if _, err := Load(); err != nil {
		t.Fatalf("missing ./.env must be ignored: %v", err)
	}
}

func TestLoad_ExplicitEnvFileNotFound(t *testing.T) {
	validEnv(t)
	t.Setenv("ENV_FILE", "/nonexistent/app.env")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeFile(t, dir, "config.yaml", `{{{invalid yaml`))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "short jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: true},
		{name: "empty jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "memory without dsn", mutate: func(c *Config) {
			c.Database.Driver = DriverMemory
			c.Database.DSN = ""
		}},
		{name: "malformed dsn", mutate: func(c *Config) { c.Database.DSN = "postgres://u:p@localhost:notaport/db" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }, wantErr: true},
		{name: "min conns above max", mutate: func(c *Config) { c.Database.MinConns = 20 }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "log file without size", mutate: func(c *Config) {
			c.Log.File = "/tmp/app.log"
			c.Log.MaxSizeMB = 0
		}, wantErr: true},
		{name: "threshold zero", mutate: func(c *Config) { c.Progress.PassThreshold = 0 }, wantErr: true},
		{name: "threshold above 100", mutate: func(c *Config) { c.Progress.PassThreshold = 101 }, wantErr: true},
		{name: "threshold boundaries", mutate: func(c *Config) { c.Progress.PassThreshold = 100 }},
		{name: "answer xp zero", mutate: func(c *Config) { c.Progress.AnswerXP = 0 }, wantErr: true},
		{name: "unknown award policy", mutate: func(c *Config) { c.Progress.AwardPolicy = "always" }, wantErr: true},
		{name: "first pass policy", mutate: func(c *Config) { c.Progress.AwardPolicy = "first_pass" }},
		{name: "negative idle ttl", mutate: func(c *Config) { c.Progress.SessionIdleTTL = -time.Second }, wantErr: true},
		{name: "channel with quote", mutate: func(c *Config) { c.Progress.ChangeChannel = `x"; drop` }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
