package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

var channelRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := c.Progress.validate(); err != nil {
		return fmt.Errorf("progress: %w", err)
	}

	return nil
}

func (d *DatabaseConfig) validate() error {
	switch strings.ToLower(d.Driver) {
	case DriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres driver")
		}
		if _, err := pgxpool.ParseConfig(d.DSN); err != nil {
			return fmt.Errorf("dsn: %w", err)
		}
		if d.MinConns > d.MaxConns {
			return fmt.Errorf("min_conns (%d) must not exceed max_conns (%d)", d.MinConns, d.MaxConns)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("driver must be %q or %q (got %q)", DriverPostgres, DriverMemory, d.Driver)
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text (got %q)", l.Format)
	}
	if l.File != "" && l.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be > 0 when file is set (got %d)", l.MaxSizeMB)
	}
	return nil
}

func (p *ProgressConfig) validate() error {
	if p.PassThreshold < 1 || p.PassThreshold > 100 {
		return fmt.Errorf("pass_threshold must be in 1..100 (got %d)", p.PassThreshold)
	}
	if p.AnswerXP <= 0 {
		return fmt.Errorf("answer_xp must be > 0 (got %d)", p.AnswerXP)
	}
	if !p.Policy().IsValid() {
		return fmt.Errorf("award_policy must be %q or %q (got %q)",
			domain.AwardEveryPass, domain.AwardFirstPass, p.AwardPolicy)
	}
	if p.SessionIdleTTL < 0 {
		return fmt.Errorf("session_idle_ttl must be >= 0 (got %v)", p.SessionIdleTTL)
	}
	if !channelRe.MatchString(p.ChangeChannel) {
		return fmt.Errorf("change_channel must be a lowercase identifier (got %q)", p.ChangeChannel)
	}
	return nil
}

// Policy returns the configured award policy as a domain value.
func (p ProgressConfig) Policy() domain.AwardPolicy {
	return domain.AwardPolicy(strings.ToLower(strings.TrimSpace(p.AwardPolicy)))
}
