package auth

import (
	"sync"
	"time"
)

// Denylist is the process-local early-revocation set for access tokens.
// Entries are added on logout or credential change and expire together with
// the token's own exp, after which the token is harmless anyway.
//
// The state is deliberately volatile: a process restart empties it, which
// reopens a window, bounded by the access-token lifetime, during which a
// denylisted but unexpired token is accepted again. That trade-off is
// accepted and must stay visible; do not hide this behind a global.
type Denylist struct {
	mu      sync.Mutex
	entries map[string]time.Time // jti -> token exp
	now     func() time.Time
}

func NewDenylist() *Denylist {
	return &Denylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Add records a jti as revoked until the token's own expiry. Entries with
// an exp already in the past are not stored.
func (d *Denylist) Add(jti string, exp time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !exp.After(d.now()) {
		return
	}
	d.entries[jti] = exp
}

// Contains reports whether the jti is currently denylisted. Expired entries
// are purged lazily on lookup.
func (d *Denylist) Contains(jti string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.entries[jti]
	if !ok {
		return false
	}
	if !exp.After(d.now()) {
		delete(d.entries, jti)
		return false
	}
	return true
}

// Purge drops every expired entry. The token service calls it periodically
// so the map does not accumulate entries between lookups.
func (d *Denylist) Purge() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for jti, exp := range d.entries {
		if !exp.After(now) {
			delete(d.entries, jti)
		}
	}
}

// Len returns the number of live entries, purging expired ones first.
func (d *Denylist) Len() int {
	d.Purge()

	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
