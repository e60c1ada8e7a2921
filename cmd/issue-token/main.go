// Command issue-token mints an access token for local development and
// prints it to stdout.
//
// Flags:
//
//	--user  user id (default: a fresh random id)
//	--role  role claim, student or admin (default: student)
//	--ttl   token lifetime (default: auth.access_token_ttl from config)
//
// Requires the same configuration as the server (AUTH_JWT_SECRET at least).
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/lingua-backend/internal/auth"
	"github.com/heartmarshall/lingua-backend/internal/config"
	"github.com/heartmarshall/lingua-backend/internal/domain"
)

func main() {
	userFlag := flag.String("user", "", "user id (default: random)")
	roleFlag := flag.String("role", string(domain.RoleStudent), "role claim: student or admin")
	ttlFlag := flag.Duration("ttl", 0, "token lifetime (default: from config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	userID := uuid.New()
	if *userFlag != "" {
		userID, err = uuid.Parse(*userFlag)
		if err != nil {
			log.Fatalf("parse --user: %v", err)
		}
	}

	role := domain.Role(strings.ToLower(strings.TrimSpace(*roleFlag)))
	if !role.IsValid() {
		log.Fatalf("--role must be %q or %q, got %q", domain.RoleStudent, domain.RoleAdmin, *roleFlag)
	}

	ttl := cfg.Auth.AccessTokenTTL
	if *ttlFlag > 0 {
		ttl = *ttlFlag
	}

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, ttl)
	token, err := tokens.GenerateAccessToken(userID, string(role))
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	log.Printf("user %s, role %s, expires in %s", userID, role, ttl)
	fmt.Println(token)
}
