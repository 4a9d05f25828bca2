package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/thostetler/nectar-sub000/pkg/logger"
)

const (
	primaryPrefix = "session:"
	indexPrefix   = "session_index:"
	destroyLimit  = 8
)

// CleanupResult reports a Cleanup pass.
type CleanupResult struct {
	Cleaned int `json:"cleaned"`
	Errors  int `json:"errors"`
}

// Stats counts keys in the session namespace.
type Stats struct {
	TotalSessions int `json:"totalSessions"`
	TotalIndexes  int `json:"totalIndexes"`
}

// Store persists Records in Redis.
type Store struct {
	client    redis.UniversalClient
	prefix    string
	ttl       TTLConfig
	scanCount int64
	log       *slog.Logger
	now       func() time.Time
}

type StoreOption func(*Store)

// WithKeyPrefix namespaces every key, e.g. "scix_".
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *Store) { s.prefix = prefix }
}

func WithTTL(ttl TTLConfig) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

func WithScanCount(n int64) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.scanCount = n
		}
	}
}

func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func NewStore(client redis.UniversalClient, opts ...StoreOption) *Store {
	def := DefaultConfig()
	s := &Store{
		client:    client,
		ttl:       def.TTL,
		scanCount: def.ScanCount,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("session_store"))
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + primaryPrefix + id
}

func (s *Store) indexKey(userID, id string) string {
	return s.prefix + indexPrefix + userID + ":" + id
}

// Lookup reads a record. A miss is (nil, nil); a Redis failure is reported
// as ErrStoreUnavailable. Undecodable records are logged and treated as a
// miss.
func (s *Store) Lookup(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.WarnContext(ctx, "discarding undecodable session",
			logger.SessionID(id), logger.Operation("get"), logger.Error(err))
		return nil, nil
	}
	return &rec, nil
}

// Get returns the record for id, or nil on a miss or any failure.
func (s *Store) Get(ctx context.Context, id string) *Record {
	rec, err := s.Lookup(ctx, id)
	if err != nil {
		s.log.ErrorContext(ctx, "session lookup failed",
			logger.SessionID(id), logger.Operation("get"), logger.Error(err))
		return nil
	}
	return rec
}

// Save writes rec under id, stamping SessionID and LastActivity, with a TTL
// chosen by TTLConfig.For. Authenticated records with a user id are also
// indexed under that user; a failed index write is logged and ignored.
// On success rec is updated in place with the stamped fields.
func (s *Store) Save(ctx context.Context, id string, rec *Record) error {
	if id == "" {
		return ErrNoSessionID
	}
	if rec == nil {
		return ErrEncode
	}

	stored := *rec
	stored.SessionID = id
	stored.LastActivity = s.now().UnixMilli()

	data, err := json.Marshal(&stored)
	if err != nil {
		return errors.Join(ErrEncode, err)
	}

	ttl := s.ttl.For(&stored)
	start := time.Now()
	if err := s.client.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	if stored.IsAuthenticated && stored.UserID != "" {
		if err := s.client.Set(ctx, s.indexKey(stored.UserID, id), id, ttl).Err(); err != nil {
			s.log.WarnContext(ctx, "session index write failed",
				logger.SessionID(id), logger.UserID(stored.UserID), logger.Operation("index"), logger.Error(err))
		}
	}

	*rec = stored
	s.log.DebugContext(ctx, "session saved",
		logger.SessionID(id),
		logger.UserID(stored.UserID),
		slog.Duration("ttl", ttl),
		logger.Duration(time.Since(start)),
	)
	return nil
}

// Set is Save reporting success as a bool.
func (s *Store) Set(ctx context.Context, id string, rec *Record) bool {
	if err := s.Save(ctx, id, rec); err != nil {
		var userID string
		if rec != nil {
			userID = rec.UserID
		}
		s.log.ErrorContext(ctx, "session save failed",
			logger.SessionID(id), logger.UserID(userID), logger.Operation("set"), logger.Error(err))
		return false
	}
	return true
}

// Touch rewrites the record to refresh LastActivity and its TTL. It returns
// false when the session does not exist.
func (s *Store) Touch(ctx context.Context, id string) bool {
	rec := s.Get(ctx, id)
	if rec == nil {
		return false
	}
	return s.Set(ctx, id, rec)
}

// Destroy deletes the record and its user index entry. It returns false when
// nothing was deleted; destroying twice is safe.
func (s *Store) Destroy(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}

	keys := []string{s.key(id)}
	if rec := s.Get(ctx, id); rec != nil && rec.UserID != "" {
		keys = append(keys, s.indexKey(rec.UserID, id))
	}

	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		s.log.ErrorContext(ctx, "session destroy failed",
			logger.SessionID(id), logger.Operation("destroy"), logger.Error(err))
		return false
	}
	return n > 0
}

// UserSessions returns the live sessions indexed under userID.
func (s *Store) UserSessions(ctx context.Context, userID string) []*Record {
	out := []*Record{}
	if userID == "" {
		return out
	}

	start := time.Now()
	keys, err := s.scan(ctx, s.prefix+indexPrefix+escapeGlob(userID)+":*")
	if err != nil {
		s.log.ErrorContext(ctx, "user session scan failed",
			logger.UserID(userID), logger.Operation("user_sessions"), logger.Error(err))
		return out
	}
	if len(keys) == 0 {
		return out
	}

	ids, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.log.ErrorContext(ctx, "user session index read failed",
			logger.UserID(userID), logger.Operation("user_sessions"), logger.Error(err))
		return out
	}

	for _, v := range ids {
		id, ok := v.(string)
		if !ok || id == "" {
			continue
		}
		if rec := s.Get(ctx, id); rec != nil {
			out = append(out, rec)
		}
	}

	s.log.DebugContext(ctx, "retrieved user sessions",
		logger.UserID(userID), slog.Int("count", len(out)), logger.Duration(time.Since(start)))
	return out
}

// DestroyAllUserSessions destroys every session of userID except excludeID
// and returns how many were destroyed. Individual failures do not stop the
// rest.
func (s *Store) DestroyAllUserSessions(ctx context.Context, userID, excludeID string) int {
	var destroyed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(destroyLimit)
	for _, rec := range s.UserSessions(ctx, userID) {
		if rec.SessionID == excludeID {
			continue
		}
		id := rec.SessionID
		g.Go(func() error {
			if s.Destroy(gctx, id) {
				destroyed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(destroyed.Load())
	s.log.InfoContext(ctx, "destroyed user sessions",
		logger.UserID(userID), logger.SessionID(excludeID), slog.Int("count", n))
	return n
}

// Cleanup removes index entries whose session has already expired.
func (s *Store) Cleanup(ctx context.Context) CleanupResult {
	var res CleanupResult

	keys, err := s.scan(ctx, s.prefix+indexPrefix+"*")
	if err != nil {
		s.log.ErrorContext(ctx, "cleanup scan failed", logger.Operation("cleanup"), logger.Error(err))
		res.Errors++
		return res
	}

	for _, key := range keys {
		i := strings.LastIndexByte(key, ':')
		if i < 0 || i == len(key)-1 {
			continue
		}
		id := key[i+1:]

		exists, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			s.log.WarnContext(ctx, "cleanup existence check failed",
				logger.SessionID(id), slog.String("key", key), logger.Operation("cleanup"), logger.Error(err))
			res.Errors++
			continue
		}
		if exists > 0 {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.log.WarnContext(ctx, "cleanup index delete failed",
				logger.SessionID(id), slog.String("key", key), logger.Operation("cleanup"), logger.Error(err))
			res.Errors++
			continue
		}
		res.Cleaned++
	}

	s.log.InfoContext(ctx, "session cleanup finished",
		slog.Int("scanned", len(keys)), slog.Int("cleaned", res.Cleaned), slog.Int("errors", res.Errors))
	return res
}

// Stats counts primary and index keys. Zero values are returned on failure.
func (s *Store) Stats(ctx context.Context) Stats {
	sessions, err := s.scan(ctx, s.prefix+primaryPrefix+"*")
	if err != nil {
		s.log.ErrorContext(ctx, "session stats failed", logger.Operation("stats"), logger.Error(err))
		return Stats{}
	}
	indexes, err := s.scan(ctx, s.prefix+indexPrefix+"*")
	if err != nil {
		s.log.ErrorContext(ctx, "session stats failed", logger.Operation("stats"), logger.Error(err))
		return Stats{}
	}
	return Stats{TotalSessions: len(sessions), TotalIndexes: len(indexes)}
}

// scan walks the keyspace with SCAN rather than KEYS so Redis is never
// blocked by a full listing.
func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, s.scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// RunCleanup runs Cleanup every interval until ctx is done. A non-positive
// interval disables it.
func (s *Store) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Cleanup(ctx)
		}
	}
}
