// Package verification implements the ephemeral store for email login
// codes. Codes live in Redis when one is configured and reachable, and in
// an in-process map otherwise; every Redis call is raced against a short
// deadline so a hung backend degrades the store instead of the login flow.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/roombook/api/internal/infrastructure/memcache"
)

const (
	// CodeTTL is how long an issued code stays verifiable.
	CodeTTL = 10 * time.Minute

	// StoreTimeout bounds the Redis write when issuing a code. Issuance
	// sits on the request path, so it gets very little headroom.
	StoreTimeout = 200 * time.Millisecond

	// VerifyTimeout bounds Redis reads during verification. A spurious
	// "invalid code" costs the user more than a small extra wait, so it is
	// looser than StoreTimeout. Keep StoreTimeout <= VerifyTimeout.
	VerifyTimeout = 500 * time.Millisecond
)

const keyPrefix = "verification:code:"

// record is the stored payload. Extra fields on the wire are ignored when
// decoding, so the format can grow without breaking older readers.
type record struct {
	Code      string `json:"code"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"` // unix milliseconds
}

// Result is what a successful verification yields.
type Result struct {
	Role  string `json:"role"`
	Email string `json:"email"`
}

// Service is the verification code store. All methods are safe for
// concurrent use. No method ever surfaces a backend failure to its caller:
// Store always lands the code somewhere, Verify and HasPending degrade to
// the local tier and at worst report "no code".
type Service struct {
	backend Backend
	local   *memcache.Store
	log     *slog.Logger

	ttl           time.Duration
	storeTimeout  time.Duration
	verifyTimeout time.Duration
}

func NewService(backend Backend, local *memcache.Store, log *slog.Logger) *Service {
	if backend == nil {
		backend = NoBackend{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		backend:       backend,
		local:         local,
		log:           log,
		ttl:           CodeTTL,
		storeTimeout:  StoreTimeout,
		verifyTimeout: VerifyTimeout,
	}
}

// GenerateCode produces a uniformly random 6-digit code, 100000–999999.
func (s *Service) GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(100000+n.Int64(), 10), nil
}

// Store saves a code for email, replacing any previous one (last writer
// wins). It never returns an error: if the Redis write errors or outlasts
// StoreTimeout, the code is written to the local tier instead so it is
// never silently lost.
func (s *Service) Store(ctx context.Context, email, role, code string) {
	normalized := normalizeEmail(email)
	key := codeKey(normalized)
	payload, err := json.Marshal(record{
		Code:      strings.TrimSpace(code),
		Role:      role,
		Email:     normalized,
		CreatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		s.log.Error("encode verification record", "err", err)
		return
	}

	if !s.backend.Available() {
		s.local.Put(key, string(payload), s.ttl)
		return
	}

	_, err = race(s.storeTimeout, func() (struct{}, error) {
		return struct{}{}, s.backend.SetEx(ctx, key, string(payload), s.ttl)
	})
	if err != nil {
		s.log.Warn("redis write failed, keeping verification code in memory", "err", err)
		s.local.Put(key, string(payload), s.ttl)
	}
}

// Verify checks code for email and consumes the record on a match. The
// record is read from Redis first when available, then from the local
// tier. A mismatch does not consume. Of two concurrent Verify calls with
// the correct code, exactly one succeeds: consumption is decided by whoever
// lands the authoritative delete (Redis DEL count, or the local store's
// single-winner Delete).
func (s *Service) Verify(ctx context.Context, email, code string) (*Result, bool) {
	key := codeKey(normalizeEmail(email))

	payload, fromRedis := s.fetch(ctx, key)
	if payload == "" {
		return nil, false
	}

	var rec record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		// Should not happen under correct writers; treat as absent rather
		// than failing the login flow.
		s.log.Warn("malformed verification record", "err", err)
		return nil, false
	}
	if rec.Code != strings.TrimSpace(code) {
		return nil, false
	}

	if !s.consume(ctx, key, fromRedis) {
		return nil, false
	}
	return &Result{Role: rec.Role, Email: rec.Email}, true
}

// HasPending reports whether a live code exists for email without
// consuming it.
func (s *Service) HasPending(ctx context.Context, email string) bool {
	key := codeKey(normalizeEmail(email))

	if s.backend.Available() {
		exists, err := race(s.verifyTimeout, func() (bool, error) {
			return s.backend.Exists(ctx, key)
		})
		if err == nil {
			return exists
		}
		s.log.Warn("redis exists failed, checking memory", "err", err)
	}
	return s.local.Has(key)
}

// fetch reads the payload for key, Redis first, local second. Redis
// errors and timeouts are swallowed here; they only mean "ask the next
// tier".
func (s *Service) fetch(ctx context.Context, key string) (payload string, fromRedis bool) {
	if s.backend.Available() {
		out, err := race(s.verifyTimeout, func() (fetched, error) {
			v, ok, err := s.backend.Get(ctx, key)
			return fetched{value: v, ok: ok}, err
		})
		switch {
		case err != nil:
			s.log.Warn("redis read failed, checking memory", "err", err)
		case out.ok:
			return out.value, true
		}
	}

	if v, ok := s.local.Get(key); ok {
		return v, false
	}
	return "", false
}

type fetched struct {
	value string
	ok    bool
}

// consume deletes the record after a successful match and reports whether
// this caller won the consumption. When the Redis delete cannot be
// confirmed (error or timeout), the local tier is deleted as a safety net
// and the consumption is treated as successful: failing a correct code
// because the backend hiccuped mid-delete would be worse than a rare
// double accept across tiers.
func (s *Service) consume(ctx context.Context, key string, fromRedis bool) bool {
	if !fromRedis {
		return s.local.Delete(key)
	}

	existed, err := race(s.verifyTimeout, func() (bool, error) {
		return s.backend.Del(ctx, key)
	})
	if err != nil {
		s.log.Warn("redis delete unconfirmed, deleting from memory", "err", err)
		s.local.Delete(key)
		return true
	}
	return existed
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func codeKey(normalizedEmail string) string {
	return keyPrefix + normalizedEmail
}
