package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caselane/authcore"
)

// keyGraceTTL is the TTL backstop added past a record's logical expiry.
// The cleanup job is the authoritative remover (it produces the removal
// analytics); the backstop only reclaims keys if the job is down for an
// extended period.
const keyGraceTTL = 24 * time.Hour

// Store is the Redis-backed [authcore.CredentialStore].
//
// Layout under the configured prefix:
//
//	u:<id>    user record (JSON)
//	ue:<mail> email -> user id (claimed with SETNX at registration)
//	s:<id>    session blob (binary, versioned)
//	us:<id>   per-user session id set
//	sx        session expiry index (ZSET, score = Unix expiry)
//	t:<hash>  token blob (binary, versioned)
//	tx        token expiry index (ZSET, score = Unix expiry)
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore wraps the Redis client. An empty prefix defaults to "ac".
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ac"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) userKey(id string) string { return s.prefix + ":u:" + id }

func (s *Store) emailKey(email string) string { return s.prefix + ":ue:" + email }

func (s *Store) sessionKey(id string) string { return s.prefix + ":s:" + id }

func (s *Store) userSetKey(userID string) string { return s.prefix + ":us:" + userID }

func (s *Store) sessionIndexKey() string { return s.prefix + ":sx" }

func (s *Store) tokenKey(hash string) string { return s.prefix + ":t:" + hash }

func (s *Store) tokenIndexKey() string { return s.prefix + ":tx" }

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
}

/*
====================================
USERS
====================================
*/

// CreateUser persists the user and claims its email atomically. A lost
// SETNX race reports ErrDuplicateEmail, so concurrent registrations for
// one address cannot both win.
func (s *Store) CreateUser(ctx context.Context, user *authcore.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	claimed, err := s.redis.SetNX(ctx, s.emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return wrapUnavailable(err)
	}
	if !claimed {
		return authcore.ErrDuplicateEmail
	}

	if err := s.redis.Set(ctx, s.userKey(user.ID), data, 0).Err(); err != nil {
		// Roll the claim back so a retry is possible.
		_ = s.redis.Del(ctx, s.emailKey(user.Email)).Err()
		return wrapUnavailable(err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, authcore.ErrUserNotFound
	}
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return s.FindUserByID(ctx, id)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*authcore.User, error) {
	data, err := s.redis.Get(ctx, s.userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, authcore.ErrUserNotFound
	}
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	user := &authcore.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser overwrites the record. Emails are immutable after
// registration, so the email index never needs a rewrite here. Writes are
// last-write-wins per record.
func (s *Store) UpdateUser(ctx context.Context, user *authcore.User) error {
	exists, err := s.redis.Exists(ctx, s.userKey(user.ID)).Result()
	if err != nil {
		return wrapUnavailable(err)
	}
	if exists == 0 {
		return authcore.ErrUserNotFound
	}

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.userKey(user.ID), data, 0).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

/*
====================================
SESSIONS
====================================
*/

func (s *Store) CreateSession(ctx context.Context, sess *authcore.Session) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}

	ttl := time.Until(sess.ExpiresAt) + keyGraceTTL
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.userSetKey(sess.UserID), sess.ID)
		pipe.ZAdd(ctx, s.sessionIndexKey(), redis.Z{
			Score:  float64(sess.ExpiresAt.Unix()),
			Member: sess.ID,
		})
		return nil
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *Store) FindSessionByID(ctx context.Context, id string) (*authcore.Session, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, authcore.ErrSessionNotFound
	}
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	sess, err := decodeSession(data)
	if err != nil {
		return nil, err
	}
	sess.ID = id
	return sess, nil
}

func (s *Store) UpdateSessionExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	sess, err := s.FindSessionByID(ctx, id)
	if err != nil {
		return err
	}

	sess.ExpiresAt = expiresAt
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}

	ttl := time.Until(expiresAt) + keyGraceTTL
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(id), data, ttl)
		pipe.ZAdd(ctx, s.sessionIndexKey(), redis.Z{
			Score:  float64(expiresAt.Unix()),
			Member: id,
		})
		return nil
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	sess, err := s.FindSessionByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(id))
		pipe.SRem(ctx, s.userSetKey(sess.UserID), id)
		pipe.ZRem(ctx, s.sessionIndexKey(), id)
		return nil
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *Store) DeleteSessionsForUser(ctx context.Context, userID string) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.userSetKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, wrapUnavailable(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
		members[i] = id
	}

	var delCmd *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.sessionIndexKey(), members...)
		pipe.Del(ctx, s.userSetKey(userID))
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return int(delCmd.Val()), nil
}

func (s *Store) FindExpiredSessions(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return s.expiredMembers(ctx, s.sessionIndexKey(), now, limit)
}

// DeleteSessions removes the given sessions and their index entries in one
// transaction per call. The count reflects session keys that actually
// existed, so records already reclaimed by a concurrent delete are not
// double-counted.
func (s *Store) DeleteSessions(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	// Learn the owners first so the per-user sets stay consistent.
	pipe := s.redis.Pipeline()
	getCmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		getCmds[i] = pipe.Get(ctx, s.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, wrapUnavailable(err)
	}

	owners := make(map[string][]interface{})
	for i, cmd := range getCmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			continue
		}
		if sess, decErr := decodeSession(data); decErr == nil {
			owners[sess.UserID] = append(owners[sess.UserID], ids[i])
		}
	}

	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
		members[i] = id
	}

	var delCmd *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.sessionIndexKey(), members...)
		for userID, sessionIDs := range owners {
			pipe.SRem(ctx, s.userSetKey(userID), sessionIDs...)
		}
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return int(delCmd.Val()), nil
}

/*
====================================
TOKENS
====================================
*/

func (s *Store) CreateToken(ctx context.Context, tok *authcore.Token) error {
	data, err := encodeToken(tok)
	if err != nil {
		return err
	}

	ttl := time.Until(tok.ExpiresAt) + keyGraceTTL
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(tok.Hash), data, ttl)
		pipe.ZAdd(ctx, s.tokenIndexKey(), redis.Z{
			Score:  float64(tok.ExpiresAt.Unix()),
			Member: tok.Hash,
		})
		return nil
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *Store) FindTokenByHash(ctx context.Context, hash string) (*authcore.Token, error) {
	data, err := s.redis.Get(ctx, s.tokenKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, authcore.ErrTokenNotFound
	}
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	tok, err := decodeToken(data)
	if err != nil {
		return nil, err
	}
	tok.Hash = hash
	return tok, nil
}

func (s *Store) DeleteToken(ctx context.Context, hash string) error {
	var delCmd *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, s.tokenKey(hash))
		pipe.ZRem(ctx, s.tokenIndexKey(), hash)
		return nil
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	if delCmd.Val() == 0 {
		return authcore.ErrTokenNotFound
	}
	return nil
}

func (s *Store) FindExpiredTokens(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return s.expiredMembers(ctx, s.tokenIndexKey(), now, limit)
}

func (s *Store) DeleteTokens(ctx context.Context, hashes []string) (int, error) {
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, len(hashes))
	members := make([]interface{}, len(hashes))
	for i, h := range hashes {
		keys[i] = s.tokenKey(h)
		members[i] = h
	}

	var delCmd *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.tokenIndexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return int(delCmd.Val()), nil
}

// expiredMembers reads ZSET members whose score (Unix expiry) is at or
// before now. limit caps the batch; zero or negative means no cap.
func (s *Store) expiredMembers(ctx context.Context, key string, now time.Time, limit int) ([]string, error) {
	opt := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}
	if limit > 0 {
		opt.Count = int64(limit)
	}

	members, err := s.redis.ZRangeByScore(ctx, key, opt).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrapUnavailable(err)
	}
	return members, nil
}

// Ping reports Redis availability and round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), wrapUnavailable(err)
	}
	return time.Since(start), nil
}
