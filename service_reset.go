package userkit

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// ResetPasswordTokenColumn is the column name passed to a TokenGenerator for
// reset password tokens.
const ResetPasswordTokenColumn = "reset_password_token"

// maxTokenAttempts bounds the regeneration loop on digest collisions.
const maxTokenAttempts = 5

// TokenGenerator creates single-use tokens. Only the digest is stored; the raw
// token is handed to the user (usually by email) and digested again on use.
type TokenGenerator interface {
	Generate(column string) (raw, digest string, err error)
	Digest(column, raw string) string
}

// HMACTokenGenerator creates random URL-safe tokens digested with HMAC-SHA256.
// The column name is mixed into the key so a token is only valid for one column.
type HMACTokenGenerator struct {
	Secret []byte
}

// NewHMACTokenGenerator creates a generator with the given secret. A nil secret
// is replaced by a random one, which invalidates outstanding tokens on restart.
func NewHMACTokenGenerator(secret []byte) *HMACTokenGenerator {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(fmt.Sprintf("userkit: failed to generate token secret: %v", err))
		}
	}
	return &HMACTokenGenerator{Secret: secret}
}

// Generate returns a new raw token and its digest.
func (g *HMACTokenGenerator) Generate(column string) (string, string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return raw, g.Digest(column, raw), nil
}

// Digest returns the hex HMAC of raw keyed by the secret and column.
func (g *HMACTokenGenerator) Digest(column, raw string) string {
	key := hmac.New(sha256.New, g.Secret)
	key.Write([]byte(column))

	mac := hmac.New(sha256.New, key.Sum(nil))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// ============================================================================
// RESET PASSWORD TOKENS
// ============================================================================

// GenerateResetPasswordToken stores a new reset password token digest on the
// user and returns the raw token. Only saved users can get a token.
func (s *Service) GenerateResetPasswordToken(ctx context.Context, u *User) (string, error) {
	if !u.Persisted() {
		return "", NewError(ErrNotPersisted, "cannot generate a reset password token for an unsaved user")
	}

	var raw, digest string
	for attempt := 0; ; attempt++ {
		if attempt == maxTokenAttempts {
			return "", NewError(ErrDatabaseError, "could not generate a unique reset password token").WithUser(u.ID)
		}

		var err error
		raw, digest, err = s.tokens.Generate(ResetPasswordTokenColumn)
		if err != nil {
			return "", err
		}

		_, err = s.store.FindUserByResetPasswordToken(ctx, digest)
		if errors.Is(err, ErrUserNotFound) {
			break
		}
		if err != nil {
			return "", err
		}
	}

	// Only the token columns are written; pending edits on u stay unsaved.
	sentAt := s.now().UTC()
	err := s.transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.UpdateResetPasswordToken(ctx, u.ID, digest, sentAt); err != nil {
			return err
		}
		return s.audit(ctx, tx, AuditEntry{
			Action:       AuditActionResetToken,
			TargetUserID: u.ID,
		})
	})
	if err != nil {
		return "", err
	}
	u.ResetPasswordToken = digest
	u.ResetPasswordSentAt = sentAt

	s.logger(ctx).WithField("user_id", u.ID).Debug("reset password token generated")
	return raw, nil
}

// FindByResetPasswordToken returns the user holding the raw token.
// A blank or unknown token fails with ErrInvalidResetToken.
func (s *Service) FindByResetPasswordToken(ctx context.Context, raw string) (*User, error) {
	if raw == "" {
		return nil, NewError(ErrInvalidResetToken, "reset password token can't be blank")
	}

	u, err := s.store.FindUserByResetPasswordToken(ctx, s.tokens.Digest(ResetPasswordTokenColumn, raw))
	if errors.Is(err, ErrUserNotFound) {
		return nil, NewError(ErrInvalidResetToken, "reset password token is invalid")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ResetPasswordPeriodValid reports whether the user's token was sent recently
// enough to be used.
func (s *Service) ResetPasswordPeriodValid(u *User) bool {
	if u == nil || u.ResetPasswordSentAt.IsZero() {
		return false
	}
	return s.now().UTC().Before(u.ResetPasswordSentAt.Add(s.resetPasswordWithin))
}
