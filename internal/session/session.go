// Package session resolves the workspace a command runs in: the
// .compass directory, its configuration, the plan store, the
// entitlement tier, and the synthesis provider.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/venturelab/compass/internal/entitlement"
	"github.com/venturelab/compass/internal/gate"
	"github.com/venturelab/compass/internal/log"
	"github.com/venturelab/compass/internal/store"
	"github.com/venturelab/compass/internal/synth"
)

// WorkspaceDir is the per-project state directory
const WorkspaceDir = ".compass"

// StoreConfig selects the persistence backend for plan snapshots
type StoreConfig struct {
	// Type is one of "file", "sqlite", "http". Defaults to "file".
	Type string `yaml:"type,omitempty"`
	// Path is the store location relative to the workspace directory
	// (file directory or sqlite database file).
	Path string `yaml:"path,omitempty"`
	// URL and APIKeyEnv configure the http backend. The key is read
	// from the named environment variable, never from this file.
	URL       string `yaml:"url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// LogConfig configures command logging
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Config is the workspace configuration at .compass/config.yaml
type Config struct {
	Store StoreConfig `yaml:"store,omitempty"`
	Log   LogConfig   `yaml:"log,omitempty"`
}

// Session is an opened workspace
type Session struct {
	Root   string // project directory
	Dir    string // workspace directory under Root
	Config *Config
	Store  store.Store
	Tier   entitlement.Tier
	Gate   *gate.Policy
	Logger *log.Logger

	closers []func() error
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{Type: "file", Path: "plans"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

func loadConfig(dir string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse workspace config: %w", err)
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "file"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "plans"
	}
	return cfg, nil
}

// Open resolves the workspace under root and wires up its backends.
// The workspace directory must already exist; use Init for first-time
// setup.
func Open(root string, verbose bool) (*Session, error) {
	dir := filepath.Join(root, WorkspaceDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("no workspace at %s (run 'compass init' first)", dir)
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.Log.Level)
	logCfg.Format = log.ParseFormat(cfg.Log.Format)
	if verbose {
		logCfg.Level = log.LevelDebug
	}
	logger := log.New(logCfg)

	s := &Session{
		Root:   root,
		Dir:    dir,
		Config: cfg,
		Tier:   entitlement.CurrentTier(dir),
		Logger: logger,
	}
	s.Gate = gate.NewPolicy(s.Tier)

	if s.Store, err = s.openStore(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init creates the workspace directory with a default config and
// returns the opened session.
func Init(root string) (*Session, error) {
	dir := filepath.Join(root, WorkspaceDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		data, err := yaml.Marshal(defaultConfig())
		if err != nil {
			return nil, fmt.Errorf("marshal default config: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	return Open(root, false)
}

func (s *Session) openStore() (store.Store, error) {
	switch s.Config.Store.Type {
	case "file":
		return store.NewFileStore(filepath.Join(s.Dir, s.Config.Store.Path)), nil

	case "sqlite":
		path := s.Config.Store.Path
		if !strings.HasSuffix(path, ".db") {
			path = filepath.Join(path, "plans.db")
		}
		db, err := store.NewSQLiteStore(filepath.Join(s.Dir, path))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		return db, nil

	case "http":
		if s.Config.Store.URL == "" {
			return nil, fmt.Errorf("store type http requires a url in config.yaml")
		}
		apiKey := ""
		if env := s.Config.Store.APIKeyEnv; env != "" {
			apiKey = os.Getenv(env)
		}
		return store.NewHTTPStore(s.Config.Store.URL, apiKey), nil

	default:
		return nil, fmt.Errorf("unknown store type %q", s.Config.Store.Type)
	}
}

// Provider loads the synthesis provider configured for this workspace.
// Without a providers.yaml the offline static provider is used, so a
// fresh workspace never needs an API key to function.
func (s *Session) Provider() (synth.Provider, error) {
	cfg, err := synth.LoadConfigOrDefault(filepath.Join(s.Dir, "providers.yaml"))
	if err != nil {
		return nil, err
	}
	p, err := synth.Select(cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, p.Close)
	return p, nil
}

// Close releases store and provider resources
func (s *Session) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

const currentPlanFile = "current"

// CurrentPlanID returns the plan the workspace is pointed at, or empty
// when no plan has been created yet.
func (s *Session) CurrentPlanID() string {
	data, err := os.ReadFile(filepath.Join(s.Dir, currentPlanFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetCurrentPlanID points the workspace at a plan
func (s *Session) SetCurrentPlanID(planID string) error {
	return os.WriteFile(filepath.Join(s.Dir, currentPlanFile), []byte(planID+"\n"), 0644)
}

// ClearCurrentPlanID removes the current-plan pointer
func (s *Session) ClearCurrentPlanID() error {
	err := os.Remove(filepath.Join(s.Dir, currentPlanFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
