// Package redisstore keeps accounts in Redis hashes with a secondary
// email-to-id index. Writes go through Lua scripts so each record changes as
// a single atomic unit.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/trackauth/store"
)

// ErrEmailImmutable is returned by Save when the email differs from the stored one.
var ErrEmailImmutable = errors.New("account email cannot change through save")

const (
	fieldID            = "id"
	fieldEmail         = "email"
	fieldPasswordHash  = "password_hash"
	fieldSessionID     = "session_id"
	fieldFirstName     = "first_name"
	fieldLastName      = "last_name"
	fieldEmailVerified = "email_verified"
	fieldCreatedAt     = "created_at"
	fieldLastLoginAt   = "last_login_at"
	fieldPasswordAt    = "last_password_change_at"
)

// KEYS[1] account hash, KEYS[2] email index; ARGV[1] id, ARGV[2..] field/value pairs.
const createScript = `
if redis.call("SETNX", KEYS[2], ARGV[1]) == 0 then
  return 0
end
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("DEL", KEYS[2])
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
return 1
`

// KEYS[1] account hash; ARGV[1] email, ARGV[2..] field/value pairs.
const saveScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "email") ~= ARGV[1] then
  return -1
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
return 1
`

var (
	createLua = redis.NewScript(createScript)
	saveLua   = redis.NewScript(saveScript)
)

// Store implements store.Accounts on Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Store whose keys start with prefix (default "trackauth").
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "trackauth"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) accountKey(id string) string {
	return s.prefix + ":acct:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + email
}

// FindByEmail resolves email through the index, then loads the account hash.
func (s *Store) FindByEmail(ctx context.Context, email string) (*store.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(store.NormalizeEmail(email))).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis email lookup: %w", err)
	}
	return s.FindByID(ctx, id)
}

// FindByID loads the account hash for id.
func (s *Store) FindByID(ctx context.Context, id string) (*store.Account, error) {
	fields, err := s.redis.HGetAll(ctx, s.accountKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis account lookup: %w", err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}
	return decode(fields)
}

// Create claims the email index and writes the account hash in one script.
// A taken email or id returns store.ErrDuplicate.
func (s *Store) Create(ctx context.Context, acct *store.Account) error {
	acct.Email = store.NormalizeEmail(acct.Email)
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}

	args := append([]any{acct.ID}, encode(acct)...)
	created, err := createLua.Run(ctx, s.redis, []string{s.accountKey(acct.ID), s.emailKey(acct.Email)}, args...).Int()
	if err != nil {
		return fmt.Errorf("redis account create: %w", err)
	}
	if created == 0 {
		return store.ErrDuplicate
	}
	return nil
}

// Save rewrites every field of an existing account in one script.
func (s *Store) Save(ctx context.Context, acct *store.Account) error {
	email := store.NormalizeEmail(acct.Email)
	args := append([]any{email}, encode(acct)...)
	status, err := saveLua.Run(ctx, s.redis, []string{s.accountKey(acct.ID)}, args...).Int()
	if err != nil {
		return fmt.Errorf("redis account save: %w", err)
	}
	switch status {
	case 0:
		return store.ErrNotFound
	case -1:
		return ErrEmailImmutable
	}
	return nil
}

func encode(a *store.Account) []any {
	verified := "0"
	if a.EmailVerified {
		verified = "1"
	}
	return []any{
		fieldID, a.ID,
		fieldEmail, store.NormalizeEmail(a.Email),
		fieldPasswordHash, a.PasswordHash,
		fieldSessionID, a.SessionID,
		fieldFirstName, a.FirstName,
		fieldLastName, a.LastName,
		fieldEmailVerified, verified,
		fieldCreatedAt, formatTime(a.CreatedAt),
		fieldLastLoginAt, formatTime(a.LastLoginAt),
		fieldPasswordAt, formatTime(a.LastPasswordChangeAt),
	}
}

func decode(f map[string]string) (*store.Account, error) {
	a := &store.Account{
		ID:            f[fieldID],
		Email:         f[fieldEmail],
		PasswordHash:  f[fieldPasswordHash],
		SessionID:     f[fieldSessionID],
		FirstName:     f[fieldFirstName],
		LastName:      f[fieldLastName],
		EmailVerified: f[fieldEmailVerified] == "1",
	}
	var err error
	if a.CreatedAt, err = parseTime(f[fieldCreatedAt]); err != nil {
		return nil, err
	}
	if a.LastLoginAt, err = parseTime(f[fieldLastLoginAt]); err != nil {
		return nil, err
	}
	if a.LastPasswordChangeAt, err = parseTime(f[fieldPasswordAt]); err != nil {
		return nil, err
	}
	return a, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt account timestamp: %w", err)
	}
	return t, nil
}
