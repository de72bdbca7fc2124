// Package config provides the typed key/value configuration store for the
// terminal core: terminal model/type/CCSID selection, protocol mode,
// TLS policy, environment variables sent during negotiation, and
// connect/idle timeouts. Values are loaded from a JSON document on disk
// and can be hot-reloaded via fsnotify.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dtg01100/tn5250r-go/internal/logging"
)

// ProtocolMode selects which device class the session negotiates as.
type ProtocolMode string

const (
	ProtocolTN5250 ProtocolMode = "TN5250"
	ProtocolTN3270 ProtocolMode = "TN3270"
	ProtocolAuto   ProtocolMode = "AUTO"
)

// TLSMode controls whether the transport dial in cmd/tn5250r wraps the
// connection in TLS.
type TLSMode string

const (
	TLSAuto TLSMode = "auto"
	TLSOn   TLSMode = "on"
	TLSOff  TLSMode = "off"
)

// Config holds every recognized key from the configuration document.
// Fields are exported so encoding/json can (de)serialize them directly,
// matching the teacher's StringsConfig pattern of one field per key.
type Config struct {
	TerminalModel int          `json:"terminal.model"`
	TerminalType  string       `json:"terminal.type"`
	TerminalCCSID int          `json:"terminal.ccsid"`
	ProtocolMode  ProtocolMode `json:"protocol.mode"`
	NetworkTLS    TLSMode      `json:"network.tls"`
	EnvUser       string       `json:"env.user"`
	EnvDevname    string       `json:"env.devname"`
	EnvKbdtype    string       `json:"env.kbdtype"`
	TimeoutConnectMs int       `json:"timeout.connect"`
	TimeoutIdleMs    int       `json:"timeout.idle"`
}

// Default returns the baseline configuration used when no document is
// present on disk, matching spec.md §6's stated defaults.
func Default() Config {
	return Config{
		TerminalModel:    2,
		TerminalType:     "IBM-3179-2",
		TerminalCCSID:    37,
		ProtocolMode:     ProtocolAuto,
		NetworkTLS:       TLSAuto,
		EnvUser:          "",
		EnvDevname:       "",
		EnvKbdtype:       "USB",
		TimeoutConnectMs: 10000,
		TimeoutIdleMs:    0,
	}
}

func (c Config) validate() error {
	switch c.ProtocolMode {
	case ProtocolTN5250, ProtocolTN3270, ProtocolAuto:
	default:
		return fmt.Errorf("config: invalid protocol.mode %q", c.ProtocolMode)
	}
	switch c.NetworkTLS {
	case TLSAuto, TLSOn, TLSOff:
	default:
		return fmt.Errorf("config: invalid network.tls %q", c.NetworkTLS)
	}
	if c.TerminalModel < 2 || c.TerminalModel > 5 {
		return fmt.Errorf("config: terminal.model %d out of range [2,5]", c.TerminalModel)
	}
	if c.TimeoutConnectMs < 0 || c.TimeoutIdleMs < 0 {
		return fmt.Errorf("config: negative timeout")
	}
	return nil
}

// Subscriber is invoked with the new configuration after a successful
// load or reload. Subscribers run synchronously on the reloading
// goroutine; they must not block.
type Subscriber func(Config)

// Store is a concurrency-safe holder for the current Config, with
// change subscription and an optional fsnotify-driven reload, grounded
// on the teacher's ConfigWatcher/watchLoop debounce pattern.
type Store struct {
	mu          sync.RWMutex
	current     Config
	path        string
	subscribers []Subscriber
}

// NewStore loads path (or falls back to Default() if path does not
// exist) and returns a ready Store.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, current: Default()}
	if path == "" {
		return s, nil
	}
	if err := s.reload(); err != nil {
		if os.IsNotExist(err) {
			logging.Debug("config: %s not found, using defaults", path)
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn to be called after every successful reload.
// The initial load happens inside NewStore, before any subscriber can
// register, so it is never reported.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	next := Default()
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("config: parse %s: %w", s.path, err)
	}
	if err := next.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return nil
}

// Save writes the current configuration back to path as JSON.
func (s *Store) Save() error {
	s.mu.RLock()
	cur := s.current
	path := s.path
	s.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("config: no path configured for Save")
	}
	data, err := json.MarshalIndent(cur, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
