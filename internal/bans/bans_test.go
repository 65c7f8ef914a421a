package bans

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCheckByConnOrAuth(t *testing.T) {
	m, err := NewManager("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Add("10.0.0.1", "key-a", "bob", "spam", "admin", 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := m.Check("10.0.0.1", ""); !ok {
		t.Fatalf("conn ban not found")
	}
	if _, ok := m.Check("10.0.0.9", "key-a"); !ok {
		t.Fatalf("auth ban not found")
	}
	if _, ok := m.Check("10.0.0.9", "key-b"); ok {
		t.Fatalf("unrelated player reported banned")
	}
	if _, ok := m.Check("", ""); ok {
		t.Fatalf("empty keys must never match")
	}
}

func TestExpiry(t *testing.T) {
	m, _ := NewManager("")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	if err := m.Add("1.2.3.4", "", "eve", "", "host", time.Hour); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := m.Check("1.2.3.4", ""); !ok {
		t.Fatalf("fresh ban not active")
	}
	now = now.Add(2 * time.Hour)
	if _, ok := m.Check("1.2.3.4", ""); ok {
		t.Fatalf("expired ban still active")
	}
	if n := len(m.GetAll()); n != 0 {
		t.Fatalf("expected no active bans, got %d", n)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "bans.json")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Add("5.5.5.5", "auth-5", "mallory", "griefing", "admin", 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	again, _ := NewManager(path)
	if err := again.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	ban, ok := again.Check("", "auth-5")
	if !ok || ban.Name != "mallory" || ban.Reason != "griefing" {
		t.Fatalf("ban not restored: %+v", ban)
	}

	removed, err := again.Remove("5.5.5.5")
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if _, ok := again.Check("5.5.5.5", ""); ok {
		t.Fatalf("removed ban still active")
	}
	if _, ok := again.Check("", "auth-5"); !ok {
		t.Fatalf("auth ban removed with the conn ban")
	}
}
