// Package admin — service.go holds operator authentication: Argon2id
// token verification with a brute-force lockout.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"afx-market/internal/common"
	"afx-market/internal/config"
)

const (
	maxAttempts   = 3
	lockoutWindow = 1 * time.Hour
)

// Service authenticates operator requests.
type Service struct {
	repo *Repository
	cfg  *config.Config
}

// NewService creates the admin service.
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// VerifyToken checks the operator token against the configured Argon2id
// hash. Brute-force protection: 3 failed attempts from one client within
// an hour lock further tries out.
func (s *Service) VerifyToken(ctx context.Context, clientKey, token string) error {
	attempts, err := s.repo.GetRecentAttempts(ctx, clientKey, lockoutWindow)
	if err != nil {
		return err
	}
	if attempts >= maxAttempts {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(token, s.cfg.AdminTokenHash)

	if err := s.repo.LogAttempt(ctx, clientKey, match); err != nil {
		log.WithError(err).Warn("Failed to log admin login attempt")
	}

	if !match {
		return common.ErrWrongAdminToken
	}
	return nil
}

// verifyArgon2id checks a token against an Argon2id hash.
// Hash format: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(token, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Malformed Argon2id hash")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Failed to parse Argon2id parameters")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Failed to decode Argon2id salt")
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Failed to decode Argon2id hash")
		return false
	}

	computedHash := argon2.IDKey([]byte(token), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Constant-time compare (timing attack protection).
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
