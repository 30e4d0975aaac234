package services

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"nigran/internal/models"
)

// RosterFetcher returns the authoritative entity list from the backend.
type RosterFetcher func(ctx context.Context) ([]models.RosterEntry, error)

// RosterService caches the authoritative roster and reconciles it with
// live-status feeds into the ordered view the dashboard expects. The
// cache is fetched lazily on the first reconciliation and refreshed
// only on demand.
type RosterService struct {
	fetch RosterFetcher

	mu       sync.RWMutex
	roster   []models.RosterEntry
	loaded   bool
	fetching bool
}

func NewRosterService(fetch RosterFetcher) *RosterService {
	return &RosterService{fetch: fetch}
}

// Refresh fetches the roster and replaces the cache. A fetch that
// omits a previously seen entry removes it.
func (s *RosterService) Refresh(ctx context.Context) error {
	entries, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.roster = entries
	s.loaded = true
	s.fetching = false
	s.mu.Unlock()
	log.Printf("[ROSTER] cached %d entries", len(entries))
	return nil
}

// Invalidate drops the cache; the next reconciliation degrades and
// kicks off a fresh fetch.
func (s *RosterService) Invalidate() {
	s.mu.Lock()
	s.roster = nil
	s.loaded = false
	s.mu.Unlock()
}

// refreshAsync starts at most one background fetch.
func (s *RosterService) refreshAsync() {
	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		return
	}
	s.fetching = true
	s.mu.Unlock()
	go func() {
		if err := s.Refresh(context.Background()); err != nil {
			log.Printf("[ROSTER] fetch failed: %v", err)
			s.mu.Lock()
			s.fetching = false
			s.mu.Unlock()
		}
	}()
}

// Reconcile merges one live-status feed with the cached roster. Roster
// entries come out first, in descending weight order with ties kept in
// roster order; entries missing from the feed are rendered offline with
// zeroed measurements. Feed entries the roster does not know about are
// appended afterwards so nothing observed is ever hidden. Without a
// cached roster the view is synthesized from the feed alone, in feed
// order, while a background fetch populates the cache for later calls.
func (s *RosterService) Reconcile(feed *models.StatusFeed) models.LiveView {
	if feed == nil {
		feed = &models.StatusFeed{Entries: make(map[string]*models.StatusPayload)}
	}
	now := time.Now()

	s.mu.RLock()
	loaded := s.loaded
	roster := s.roster
	s.mu.RUnlock()

	if !loaded {
		s.refreshAsync()
		return degradedView(feed, now)
	}

	ordered := make([]models.RosterEntry, len(roster))
	copy(ordered, roster)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Weight > ordered[j].Weight
	})

	consumed := make(map[string]bool, len(feed.Entries))
	servers := make([]models.ServerView, 0, len(ordered)+len(feed.Keys))
	for _, entry := range ordered {
		if p, ok := feed.Entries[entry.UUID]; ok {
			servers = append(servers, mergedView(entry, p))
			consumed[entry.UUID] = true
		} else {
			servers = append(servers, offlineView(entry))
		}
	}
	for _, key := range feed.Keys {
		if consumed[key] {
			continue
		}
		servers = append(servers, synthesizedView(key, feed.Entries[key]))
	}
	return models.LiveView{UpdatedAt: now, Servers: servers}
}

func degradedView(feed *models.StatusFeed, now time.Time) models.LiveView {
	servers := make([]models.ServerView, 0, len(feed.Keys))
	for _, key := range feed.Keys {
		servers = append(servers, synthesizedView(key, feed.Entries[key]))
	}
	return models.LiveView{UpdatedAt: now, Servers: servers}
}

// mergedView combines a roster entry with its live measurement: roster
// wins for static facts, the feed wins for everything dynamic.
func mergedView(entry models.RosterEntry, p *models.StatusPayload) models.ServerView {
	region := entry.Region
	if region == "" {
		region = p.Region
	}
	return models.ServerView{
		ID:         models.HashID(entry.UUID),
		Name:       entry.Name,
		Group:      entry.Group,
		Weight:     entry.Weight,
		Region:     models.RegionFromFlag(region),
		Host:       entry.Host,
		Status:     p.Measurements(),
		Online:     true,
		LastActive: p.UpdatedAt,
	}
}

func offlineView(entry models.RosterEntry) models.ServerView {
	return models.ServerView{
		ID:     models.HashID(entry.UUID),
		Name:   entry.Name,
		Group:  entry.Group,
		Weight: entry.Weight,
		Region: models.RegionFromFlag(entry.Region),
		Host:   entry.Host,
	}
}

// synthesizedView builds a view for an entity the roster does not
// know, inferring host facts from the payload itself.
func synthesizedView(key string, p *models.StatusPayload) models.ServerView {
	name := p.Name
	if name == "" {
		name = key
	}
	return models.ServerView{
		ID:         models.HashID(key),
		Name:       name,
		Region:     models.RegionFromFlag(p.Region),
		Host:       p.Hostish(),
		Status:     p.Measurements(),
		Online:     true,
		LastActive: p.UpdatedAt,
	}
}
