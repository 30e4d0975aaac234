package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"nigran/internal/models"
)

func staticRoster(entries []models.RosterEntry) *RosterService {
	s := NewRosterService(func(context.Context) ([]models.RosterEntry, error) {
		return entries, nil
	})
	if err := s.Refresh(context.Background()); err != nil {
		panic(err)
	}
	return s
}

func feedOf(pairs ...interface{}) *models.StatusFeed {
	feed := &models.StatusFeed{Entries: make(map[string]*models.StatusPayload)}
	for i := 0; i < len(pairs); i += 2 {
		key := pairs[i].(string)
		feed.Keys = append(feed.Keys, key)
		feed.Entries[key] = pairs[i+1].(*models.StatusPayload)
	}
	return feed
}

func TestReconcileOrderAndSynthesis(t *testing.T) {
	s := staticRoster([]models.RosterEntry{
		{UUID: "a", Name: "alpha", Weight: 5},
		{UUID: "b", Name: "beta", Weight: 1},
	})
	feed := feedOf(
		"a", &models.StatusPayload{CPU: 10, UpdatedAt: "2026-08-26T10:00:00Z"},
		"c", &models.StatusPayload{CPU: 99},
	)

	view := s.Reconcile(feed)
	if len(view.Servers) != 3 {
		t.Fatalf("got %d servers, want 3", len(view.Servers))
	}

	a, b, c := view.Servers[0], view.Servers[1], view.Servers[2]
	if a.Name != "alpha" || a.Status.CPU != 10 || !a.Online {
		t.Errorf("servers[0] = %+v, want merged alpha with cpu 10", a)
	}
	if b.Name != "beta" || b.Online || b.Status.CPU != 0 || b.LastActive != "" {
		t.Errorf("servers[1] = %+v, want offline beta with zeroed status", b)
	}
	if c.Name != "c" || c.Status.CPU != 99 || !c.Online {
		t.Errorf("servers[2] = %+v, want synthesized c with cpu 99", c)
	}
	if c.ID != models.HashID("c") {
		t.Errorf("synthesized id = %d, want HashID(c) = %d", c.ID, models.HashID("c"))
	}
}

func TestReconcileWeightTiesKeepRosterOrder(t *testing.T) {
	s := staticRoster([]models.RosterEntry{
		{UUID: "x", Name: "first", Weight: 2},
		{UUID: "y", Name: "second", Weight: 2},
		{UUID: "z", Name: "heavy", Weight: 9},
	})
	view := s.Reconcile(nil)
	got := []string{view.Servers[0].Name, view.Servers[1].Name, view.Servers[2].Name}
	want := []string{"heavy", "first", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestReconcileEveryKeyExactlyOnce(t *testing.T) {
	s := staticRoster([]models.RosterEntry{
		{UUID: "a", Weight: 3},
		{UUID: "b", Weight: 2},
		{UUID: "c", Weight: 1},
	})
	feed := feedOf(
		"b", &models.StatusPayload{CPU: 1},
		"d", &models.StatusPayload{CPU: 2},
		"e", &models.StatusPayload{CPU: 3},
	)
	view := s.Reconcile(feed)

	if len(view.Servers) < 3 || len(view.Servers) < len(feed.Keys) {
		t.Fatalf("output shorter than roster or feed: %d", len(view.Servers))
	}
	seen := make(map[int32]int)
	for _, sv := range view.Servers {
		seen[sv.ID]++
	}
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		if n := seen[models.HashID(key)]; n != 1 {
			t.Errorf("key %q appears %d times, want 1", key, n)
		}
	}
}

func TestReconcileDegradedWithoutRoster(t *testing.T) {
	fetched := make(chan struct{}, 8)
	s := NewRosterService(func(context.Context) ([]models.RosterEntry, error) {
		fetched <- struct{}{}
		return nil, errors.New("backend down")
	})

	feed := feedOf(
		"two", &models.StatusPayload{Name: "Second", CPU: 2, Platform: "linux", MemTotal: 1024},
		"one", &models.StatusPayload{CPU: 1},
	)
	view := s.Reconcile(feed)

	if len(view.Servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(view.Servers))
	}
	// Feed insertion order, not key order.
	if view.Servers[0].Name != "Second" || view.Servers[1].Name != "one" {
		t.Fatalf("degraded order = %q, %q", view.Servers[0].Name, view.Servers[1].Name)
	}
	if view.Servers[0].Host.Platform != "linux" || view.Servers[0].Host.MemTotal != 1024 {
		t.Errorf("host facts not inferred from payload: %+v", view.Servers[0].Host)
	}

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("degraded reconcile never kicked off a roster fetch")
	}

	// Fetch failed, so later calls stay on the degraded path.
	view = s.Reconcile(feed)
	if len(view.Servers) != 2 || view.Servers[0].Name != "Second" {
		t.Fatalf("second degraded pass changed shape: %+v", view.Servers)
	}
}

func TestReconcileRegionAndMergePrecedence(t *testing.T) {
	s := staticRoster([]models.RosterEntry{
		{
			UUID:   "a",
			Name:   "alpha",
			Weight: 1,
			Region: "\U0001F1FA\U0001F1F8", // US flag
			Host:   models.Host{Platform: "debian", MemTotal: 4096},
		},
	})
	feed := feedOf("a", &models.StatusPayload{
		CPU:      42,
		Platform: "ubuntu", // static fact from the feed must lose
		MemTotal: 1,
	})
	view := s.Reconcile(feed)
	sv := view.Servers[0]
	if sv.Region != "US" {
		t.Errorf("region = %q, want US", sv.Region)
	}
	if sv.Host.Platform != "debian" || sv.Host.MemTotal != 4096 {
		t.Errorf("roster host facts overridden: %+v", sv.Host)
	}
	if sv.Status.CPU != 42 {
		t.Errorf("live measurement lost: %+v", sv.Status)
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	s := staticRoster([]models.RosterEntry{{UUID: "a", Name: "alpha", Weight: 1}})
	view := s.Reconcile(nil)
	if len(view.Servers) != 1 {
		t.Fatalf("primed cache not used: %+v", view.Servers)
	}
	s.Invalidate()
	view = s.Reconcile(nil)
	if len(view.Servers) != 0 {
		t.Fatalf("invalidated cache still produced %d servers", len(view.Servers))
	}
}
