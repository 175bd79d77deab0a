// Package ledger accounts downloads per user against a free allowance.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/metafates/gache"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/filesystem"
)

// Reasons reported in an Allowance.
const (
	ReasonNewUser      = "new_user"
	ReasonPremium      = "premium"
	ReasonFree         = "free"
	ReasonLimitReached = "limit_reached"
)

// historyLimit caps the download history kept per user.
const historyLimit = 50

// Ledger decides whether a user may download and records completed
// downloads.
type Ledger interface {
	CanDownload(ctx context.Context, userID string) (Allowance, error)
	RecordDownload(ctx context.Context, userID, sourceLink string) error
}

// Allowance is the answer to CanDownload. Remaining is -1 when unlimited.
type Allowance struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason"`
}

// Download is one recorded download.
type Download struct {
	Link string    `json:"link"`
	At   time.Time `json:"at"`
}

// User is the persisted state of one user.
type User struct {
	Downloads        int        `json:"downloads"`
	Premium          bool       `json:"premium"`
	PremiumExpiresAt time.Time  `json:"premium_expires_at,omitzero"`
	CreatedAt        time.Time  `json:"created_at"`
	History          []Download `json:"history,omitempty"`
}

// premiumAt reports whether the premium grant is still valid at now.
func (u *User) premiumAt(now time.Time) bool {
	return u.Premium && now.Before(u.PremiumExpiresAt)
}

// backend is the persistence used by Store.
type backend interface {
	Get() (map[string]*User, bool, error)
	Set(map[string]*User) error
}

// Store is a Ledger persisted as a single JSON document.
type Store struct {
	mu        sync.Mutex
	cache     backend
	freeLimit int
	now       func() time.Time
}

// New creates a Store persisted at cfg.Path on the active filesystem
// backend.
func New(cfg app.LedgerConfig) *Store {
	return newStore(gache.New[map[string]*User](&gache.Options{
		Path:       cfg.Path,
		FileSystem: &filesystem.GacheFs{},
	}), cfg.FreeLimit)
}

func newStore(b backend, freeLimit int) *Store {
	return &Store{cache: b, freeLimit: freeLimit, now: time.Now}
}

func (s *Store) load() (map[string]*User, error) {
	users, expired, err := s.cache.Get()
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	if expired || users == nil {
		return make(map[string]*User), nil
	}
	return users, nil
}

func (s *Store) save(users map[string]*User) error {
	if err := s.cache.Set(users); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// CanDownload reports whether userID may start another download. An
// expired premium grant is cleared and the user falls back to the free
// allowance.
func (s *Store) CanDownload(ctx context.Context, userID string) (Allowance, error) {
	if err := ctx.Err(); err != nil {
		return Allowance{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return Allowance{}, err
	}

	u, ok := users[userID]
	if !ok {
		return Allowance{Allowed: true, Remaining: s.freeLimit, Reason: ReasonNewUser}, nil
	}

	now := s.now()
	if u.premiumAt(now) {
		return Allowance{Allowed: true, Remaining: -1, Reason: ReasonPremium}, nil
	}
	if u.Premium {
		u.Premium = false
		if err := s.save(users); err != nil {
			return Allowance{}, err
		}
	}

	if u.Downloads < s.freeLimit {
		return Allowance{Allowed: true, Remaining: s.freeLimit - u.Downloads, Reason: ReasonFree}, nil
	}
	return Allowance{Allowed: false, Remaining: 0, Reason: ReasonLimitReached}, nil
}

// RecordDownload counts one completed download of sourceLink for userID,
// creating the user on first use.
func (s *Store) RecordDownload(ctx context.Context, userID, sourceLink string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}

	now := s.now()
	u := s.user(users, userID, now)
	u.Downloads++
	u.History = append(u.History, Download{Link: sourceLink, At: now})
	if n := len(u.History); n > historyLimit {
		u.History = u.History[n-historyLimit:]
	}

	return s.save(users)
}

// ActivatePremium grants userID unlimited downloads for days and returns
// the expiry.
func (s *Store) ActivatePremium(ctx context.Context, userID string, days int) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if days <= 0 {
		return time.Time{}, fmt.Errorf("premium days must be positive, got %d", days)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return time.Time{}, err
	}

	now := s.now()
	u := s.user(users, userID, now)
	u.Premium = true
	u.PremiumExpiresAt = now.AddDate(0, 0, days)

	if err := s.save(users); err != nil {
		return time.Time{}, err
	}
	return u.PremiumExpiresAt, nil
}

// Stats returns a copy of the state of userID. Unknown users report zero
// downloads.
func (s *Store) Stats(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return User{}, err
	}

	u, ok := users[userID]
	if !ok {
		return User{}, nil
	}
	out := *u
	out.Premium = u.premiumAt(s.now())
	out.History = append([]Download(nil), u.History...)
	return out, nil
}

func (s *Store) user(users map[string]*User, userID string, now time.Time) *User {
	u, ok := users[userID]
	if !ok {
		u = &User{CreatedAt: now}
		users[userID] = u
	}
	return u
}
