// Package memory is a mutex-guarded implementation of every store interface.
// It backs development runs without a database and the HTTP tests. A single
// lock serializes mutations, which gives the same atomicity the Postgres
// store gets from row locks.
package memory

import (
	"sync"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/communities"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/sites"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/video"
)

type Store struct {
	mu sync.Mutex

	profiles map[string]*profiles.Profile
	codes    map[string]string

	txs []ledger.Transaction
	seq uint64

	grants      map[string]access.Grant
	grantByUser map[string]string

	communities map[string]*communities.Community
	joinCodes   map[string]string
	members     map[string]map[string]time.Time

	sites map[string]sites.Site
	slugs map[string]string

	videos map[string]video.Task

	now func() time.Time
}

var (
	_ profiles.Store    = (*Store)(nil)
	_ ledger.Store      = (*Store)(nil)
	_ access.RoleLookup = (*Store)(nil)
	_ access.GrantStore = (*Store)(nil)
	_ communities.Store = (*Store)(nil)
	_ sites.Store       = (*Store)(nil)
	_ video.Store       = (*Store)(nil)
)

func New() *Store {
	return &Store{
		profiles:    make(map[string]*profiles.Profile),
		codes:       make(map[string]string),
		grants:      make(map[string]access.Grant),
		grantByUser: make(map[string]string),
		communities: make(map[string]*communities.Community),
		joinCodes:   make(map[string]string),
		members:     make(map[string]map[string]time.Time),
		sites:       make(map[string]sites.Site),
		slugs:       make(map[string]string),
		videos:      make(map[string]video.Task),
		now:         func() time.Time { return time.Now().UTC() },
	}
}
