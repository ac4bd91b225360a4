// Package scoring computes the user score and looks up client interests.
//
// Scores are cached in the store for an hour, keyed by a digest of the
// scored fields; cache trouble never fails a request. Interests are read
// from the store and fall back to a pair of topics derived from the client id.
package scoring

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Score weights.
const (
	PhoneWeight    = 1.5
	EmailWeight    = 1.5
	BirthdayGender = 1.5
	FullName       = 0.5
)

// ScoreTTL is how long a computed score stays cached.
const ScoreTTL = time.Hour

// Topics is the pool fallback interests are drawn from.
var Topics = []string{"cars", "pets", "travel", "hi-tech", "sport", "music", "books", "tv", "cinema", "geek", "otus"}

// Person carries the optional fields a score is computed from. Nil means
// the field was not supplied.
type Person struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Birthday  *time.Time
	Gender    *int
}

// Score sums the weights of the fields that carry a value. Empty strings and
// gender 0 add nothing.
func Score(p Person) float64 {
	score := 0.0
	if filled(p.Phone) {
		score += PhoneWeight
	}
	if filled(p.Email) {
		score += EmailWeight
	}
	if p.Birthday != nil && p.Gender != nil && *p.Gender != 0 {
		score += BirthdayGender
	}
	if filled(p.FirstName) && filled(p.LastName) {
		score += FullName
	}
	return score
}

func filled(s *string) bool { return s != nil && *s != "" }

// CacheKey identifies p's cached score: "uid:" followed by the MD5 of every
// scored field joined with "|" in the order first name, last name, email,
// phone, birthday (YYYYMMDD), gender.
func CacheKey(p Person) string {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	birthday, gender := "", ""
	if p.Birthday != nil {
		birthday = p.Birthday.Format("20060102")
	}
	if p.Gender != nil {
		gender = strconv.Itoa(*p.Gender)
	}
	parts := []string{deref(p.FirstName), deref(p.LastName), deref(p.Email), deref(p.Phone), birthday, gender}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return "uid:" + hex.EncodeToString(sum[:])
}

// InterestsKey is the store key holding a client's interests.
func InterestsKey(cid int) string {
	return "i:" + strconv.Itoa(cid)
}

// FallbackInterests derives two distinct topics from cid.
func FallbackInterests(cid int) []string {
	h := fnv.New64a()
	h.Write([]byte(strconv.Itoa(cid)))
	seed := h.Sum64()

	n := uint64(len(Topics))
	first := seed % n
	second := (seed / n) % (n - 1)
	if second >= first {
		second++
	}
	return []string{Topics[first], Topics[second]}
}

// Cache is the best-effort side of the store.
type Cache interface {
	CacheGet(ctx context.Context, key string) []byte
	CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) bool
}

// Reader is the authoritative side of the store.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Store is what Service needs from the storage client.
type Store interface {
	Cache
	Reader
}

// Service runs score and interests lookups against a store.
type Service struct {
	store Store
	log   logrus.FieldLogger
}

// NewService returns a Service backed by store.
func NewService(store Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, log: log.WithField("component", "scoring")}
}

// Score returns p's score, served from the cache when a positive value is
// cached and recomputed otherwise.
func (s *Service) Score(ctx context.Context, p Person) float64 {
	key := CacheKey(p)
	if raw := s.store.CacheGet(ctx, key); raw != nil {
		cached, err := strconv.ParseFloat(string(raw), 64)
		if err == nil && cached > 0 {
			return cached
		}
		if err != nil {
			s.log.WithField("key", key).WithError(err).Warn("ignoring malformed cached score")
		}
	}

	score := Score(p)
	s.store.CacheSet(ctx, key, []byte(strconv.FormatFloat(score, 'f', -1, 64)), ScoreTTL)
	return score
}

// Interests returns the topics stored for cid, or FallbackInterests when
// none are stored. Store failures are returned.
func (s *Service) Interests(ctx context.Context, cid int) ([]string, error) {
	raw, err := s.store.Get(ctx, InterestsKey(cid))
	if err != nil {
		return nil, fmt.Errorf("interests of client %d: %w", cid, err)
	}
	if raw == nil {
		return FallbackInterests(cid), nil
	}

	var topics []string
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, fmt.Errorf("interests of client %d: decode %q: %w", cid, raw, err)
	}
	return topics, nil
}
