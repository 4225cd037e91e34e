package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcached returns nil when no server is configured; callers treat that as cache disabled.
func NewMemcached(server string) *memcache.Client {
	if server == "" {
		return nil
	}
	mc := memcache.New(server)
	mc.Timeout = 200 * time.Millisecond
	return mc
}
