package tzconv

import (
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
)

// Zones is a cached timezone table.
type Zones struct {
	mu    sync.RWMutex
	cache map[string]*time.Location
	load  func(string) (*time.Location, error)
}

func NewZones() *Zones {
	return &Zones{cache: map[string]*time.Location{}, load: time.LoadLocation}
}

// Load returns the named IANA zone. Empty names and "Local" are rejected so
// results never depend on the server's own zone.
func (z *Zones) Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, apperr.InvalidTimezone(name)
	}
	z.mu.RLock()
	loc, ok := z.cache[name]
	z.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := z.load(name)
	if err != nil {
		return nil, apperr.InvalidTimezone(name)
	}
	z.mu.Lock()
	z.cache[name] = loc
	z.mu.Unlock()
	return loc, nil
}
