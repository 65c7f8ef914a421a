package bans

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type BanType string

const (
	BanTypeConn BanType = "conn"
	BanTypeAuth BanType = "auth"
)

type Ban struct {
	Type      BanType   `json:"type"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Reason    string    `json:"reason,omitempty"`
	BannedBy  string    `json:"banned_by"`
	BannedAt  time.Time `json:"banned_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Permanent bool      `json:"permanent"`
}

func (b *Ban) expired(now time.Time) bool {
	return !b.Permanent && now.After(b.ExpiresAt)
}

// Manager keeps the bans of a room and mirrors them to a JSON file. An
// empty path keeps them in memory only.
type Manager struct {
	connBans map[string]*Ban
	authBans map[string]*Ban
	filePath string
	now      func() time.Time
	mu       sync.RWMutex
}

func NewManager(filePath string) (*Manager, error) {
	if filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create bans directory: %w", err)
		}
	}
	return &Manager{
		connBans: make(map[string]*Ban),
		authBans: make(map[string]*Ban),
		filePath: filePath,
		now:      time.Now,
	}, nil
}

func (m *Manager) Load() error {
	if m.filePath == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read bans file: %w", err)
	}

	var bans []*Ban
	if err := json.Unmarshal(data, &bans); err != nil {
		return fmt.Errorf("failed to parse bans file: %w", err)
	}

	m.connBans = make(map[string]*Ban)
	m.authBans = make(map[string]*Ban)
	now := m.now()
	for _, ban := range bans {
		if ban.Key == "" || ban.expired(now) {
			continue
		}
		switch ban.Type {
		case BanTypeConn:
			m.connBans[ban.Key] = ban
		case BanTypeAuth:
			m.authBans[ban.Key] = ban
		}
	}
	return nil
}

// Check reports the ban matching either the connection or the auth key of
// a joining player.
func (m *Manager) Check(conn, auth string) (*Ban, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	if ban, ok := m.connBans[conn]; ok && conn != "" && !ban.expired(now) {
		return ban, true
	}
	if ban, ok := m.authBans[auth]; ok && auth != "" && !ban.expired(now) {
		return ban, true
	}
	return nil, false
}

// Add bans a player by connection and, when it has one, by auth key. A zero
// duration bans for good.
func (m *Manager) Add(conn, auth, name, reason, bannedBy string, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	newBan := func(t BanType, key string) *Ban {
		ban := &Ban{
			Type:      t,
			Key:       key,
			Name:      name,
			Reason:    reason,
			BannedBy:  bannedBy,
			BannedAt:  now,
			Permanent: duration == 0,
		}
		if duration > 0 {
			ban.ExpiresAt = now.Add(duration)
		}
		return ban
	}
	if conn != "" {
		m.connBans[conn] = newBan(BanTypeConn, conn)
	}
	if auth != "" {
		m.authBans[auth] = newBan(BanTypeAuth, auth)
	}
	return m.saveUnlocked()
}

// Remove lifts every ban with the given key and reports whether one existed.
func (m *Manager) Remove(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, a := m.connBans[key]
	_, b := m.authBans[key]
	if !a && !b {
		return false, nil
	}
	delete(m.connBans, key)
	delete(m.authBans, key)
	return true, m.saveUnlocked()
}

func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connBans = make(map[string]*Ban)
	m.authBans = make(map[string]*Ban)
	return m.saveUnlocked()
}

func (m *Manager) GetAll() []*Ban {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeUnlocked()
}

func (m *Manager) activeUnlocked() []*Ban {
	now := m.now()
	bans := make([]*Ban, 0, len(m.connBans)+len(m.authBans))
	for _, ban := range m.connBans {
		if !ban.expired(now) {
			bans = append(bans, ban)
		}
	}
	for _, ban := range m.authBans {
		if !ban.expired(now) {
			bans = append(bans, ban)
		}
	}
	return bans
}

func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, ban := range m.connBans {
		if ban.expired(now) {
			delete(m.connBans, key)
		}
	}
	for key, ban := range m.authBans {
		if ban.expired(now) {
			delete(m.authBans, key)
		}
	}
	return m.saveUnlocked()
}

func (m *Manager) saveUnlocked() error {
	if m.filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(m.activeUnlocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bans: %w", err)
	}

	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write bans file: %w", err)
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		return fmt.Errorf("failed to replace bans file: %w", err)
	}
	return nil
}
