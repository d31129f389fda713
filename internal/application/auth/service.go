// Package auth implements the email-code login flow: a user asks for a
// code, receives it by email, and exchanges it for a bearer token. The
// code store absorbs every backend failure, so the only errors surfaced
// here are "unknown email" and "invalid or expired code".
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roombook/api/internal/application/verification"
	"github.com/roombook/api/internal/domain"
)

// UserStore is the slice of the persistence layer this flow needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CodeStore is the verification code store contract.
type CodeStore interface {
	GenerateCode() (string, error)
	Store(ctx context.Context, email, role, code string)
	Verify(ctx context.Context, email, code string) (*verification.Result, bool)
	HasPending(ctx context.Context, email string) bool
}

// Mailer delivers the code email, best effort.
type Mailer interface {
	Send(to, subject, body string) error
}

// TokenSigner mints the bearer token after a successful verification.
type TokenSigner interface {
	Sign(userID, email, role string) (string, error)
}

type Service interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (bearer string, user *domain.User, err error)
	HasPendingCode(ctx context.Context, email string) bool
}

type service struct {
	users  UserStore
	codes  CodeStore
	mailer Mailer
	signer TokenSigner
	log    *slog.Logger
}

func NewService(users UserStore, codes CodeStore, mailer Mailer, signer TokenSigner) Service {
	return &service{
		users:  users,
		codes:  codes,
		mailer: mailer,
		signer: signer,
		log:    slog.Default(),
	}
}

func (s *service) RequestCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("request code: %w", domain.ErrNotFound)
	}

	code, err := s.codes.GenerateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	s.codes.Store(ctx, email, user.Role, code)

	// The code is already stored; a mail outage must not fail the request.
	subject := "Your Room Booking verification code"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour verification code is: %s\n\nIt expires in 10 minutes. If you didn't request it, you can ignore this email.",
		user.Name, code,
	)
	if err := s.mailer.Send(email, subject, body); err != nil {
		s.log.Warn("could not email verification code", "err", err)
	}
	return nil
}

func (s *service) VerifyCode(ctx context.Context, email, code string) (string, *domain.User, error) {
	res, ok := s.codes.Verify(ctx, email, code)
	if !ok {
		// Same answer whether the code was wrong, expired, or the backend
		// was down — the caller cannot tell these apart.
		return "", nil, fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthorized)
	}

	user, err := s.users.GetByEmail(ctx, res.Email)
	if err != nil {
		return "", nil, fmt.Errorf("verify code: %w", domain.ErrUnauthorized)
	}

	if s.signer == nil {
		return "", user, nil
	}
	bearer, err := s.signer.Sign(user.UserID, user.Email, res.Role)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return bearer, user, nil
}

func (s *service) HasPendingCode(ctx context.Context, email string) bool {
	return s.codes.HasPending(ctx, email)
}
