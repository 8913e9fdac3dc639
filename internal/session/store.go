package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/phonetracker/internal/lookup"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

const (
	CookieName = "phone_tracker_session"
	megabyte   = 1024 * 1024
	keyPrefix  = "slot::"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store keeps one result slot per browser session, in process memory only.
// Everything is gone when the process stops.
type Store struct {
	cache         *freecache.Cache
	ttl           time.Duration
	secureCookies bool
}

func NewStore(cacheSizeMB int, ttl time.Duration, secureCookies bool) *Store {
	return &Store{
		cache:         freecache.NewCache(cacheSizeMB * megabyte),
		ttl:           ttl,
		secureCookies: secureCookies,
	}
}

// FromRequest returns the slot of the session the request belongs to,
// starting a new session (with an empty slot) when there is none yet.
func (s *Store) FromRequest(w http.ResponseWriter, r *http.Request) *Slot {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return s.Slot(id.String())
		}
		log.Debugf("session: ignoring malformed session cookie [%s]", c.Value)
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	log.Tracef("session: started new session [%s]", id)

	return s.Slot(id)
}

// ExistingFromRequest is like FromRequest, but never starts a new session.
func (s *Store) ExistingFromRequest(r *http.Request) (*Slot, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return nil, false
	}
	return s.Slot(id.String()), true
}

func (s *Store) Slot(sessionID string) *Slot {
	return &Slot{
		store: s,
		key:   []byte(keyPrefix + sessionID),
		id:    sessionID,
	}
}

// StoredResultsCount is the number of sessions currently holding a result.
func (s *Store) StoredResultsCount() int64 {
	return s.cache.EntryCount()
}

// Slot holds either the last successful lookup result of a session, or nothing.
// It is only ever replaced as a whole.
type Slot struct {
	store *Store
	key   []byte
	id    string
}

func (sl *Slot) SessionID() string {
	return sl.id
}

// Get returns a copy of the stored result; reading never changes the slot.
func (sl *Slot) Get() (*lookup.Result, bool) {
	resultBytes, err := sl.store.cache.Get(sl.key)
	if err != nil {
		if !errors.Is(err, freecache.ErrNotFound) {
			log.Errorf("session [%s]: get slot: %s", sl.id, err)
		}
		return nil, false
	}

	result := &lookup.Result{}
	if err := json.Unmarshal(resultBytes, result); err != nil {
		log.Errorf("session [%s]: unmarshal slot: %s", sl.id, err)
		return nil, false
	}

	return result, true
}

// Replace stores result in place of whatever was there; nil clears the slot.
func (sl *Slot) Replace(result *lookup.Result) error {
	if result == nil {
		sl.Clear()
		return nil
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		sl.Clear()
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := sl.store.cache.Set(sl.key, resultBytes, int(sl.store.ttl.Seconds())); err != nil {
		// never leave the previous result behind
		sl.Clear()
		return fmt.Errorf("set slot: %w", err)
	}

	return nil
}

func (sl *Slot) Clear() {
	sl.store.cache.Del(sl.key)
}
