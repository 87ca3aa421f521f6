package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/adalundhe/museswarm/core/storage"
	"gopkg.in/yaml.v3"
)

type Manager struct {
	configPtr   unsafe.Pointer
	dirs        *storage.Dirs
	projectRoot string
	watchers    []func(*Config)
	watcherMu   sync.RWMutex
	stopWatch   chan struct{}
	watchOnce   sync.Once
}

type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Swarm  SwarmConfig  `yaml:"swarm"`
	Agents AgentsConfig `yaml:"agents"`
	Tool   ToolConfig   `yaml:"tool"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

type LLMConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// BindingConfig names the endpoint, model and credential a participant talks to.
type BindingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Credential string `yaml:"credential"`
}

type AgentConfig struct {
	Binding      BindingConfig `yaml:",inline"`
	SystemPrompt string        `yaml:"system_prompt"`
}

type AgentsConfig struct {
	Muse    AgentConfig   `yaml:"muse"`
	Critic  AgentConfig   `yaml:"critic"`
	Manager BindingConfig `yaml:"manager"`
}

type SwarmConfig struct {
	RoundCap         int           `yaml:"round_cap"`
	TerminationToken string        `yaml:"termination_token"`
	Selection        string        `yaml:"selection"`
	TurnTimeout      time.Duration `yaml:"turn_timeout"`
	Budget           time.Duration `yaml:"budget"`
}

type ToolConfig struct {
	Binding  BindingConfig `yaml:",inline"`
	Header   string        `yaml:"header"`
	Template string        `yaml:"template"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`

	// MaxSessions bounds the in-memory session store; the least recently
	// used session is dropped when a new one would exceed it.
	MaxSessions int `yaml:"max_sessions"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

func NewManager(dirs *storage.Dirs) *Manager {
	m := &Manager{
		dirs:        dirs,
		projectRoot: ".",
		stopWatch:   make(chan struct{}),
	}
	cfg := DefaultConfig()
	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	return m
}

// SetProjectRoot changes where the project and local config layers are read from.
func (m *Manager) SetProjectRoot(root string) {
	m.projectRoot = root
}

func (m *Manager) Get() *Config {
	return (*Config)(atomic.LoadPointer(&m.configPtr))
}

func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadProjectConfig(cfg); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	if err := m.loadLocalConfig(cfg); err != nil {
		return fmt.Errorf("local config: %w", err)
	}

	m.applyEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	m.notifyWatchers(cfg)

	return nil
}

// Paths returns the config files Load reads, lowest precedence first.
func (m *Manager) Paths() []string {
	projectDirs := storage.ResolveProjectDirs(m.projectRoot)
	return []string{
		projectDirs.Config,
		m.dirs.ConfigDir("config.yaml"),
		filepath.Join(projectDirs.Local, "config.yaml"),
	}
}

func (m *Manager) loadProjectConfig(cfg *Config) error {
	return m.loadYAMLFile(m.Paths()[0], cfg)
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	return m.loadYAMLFile(m.Paths()[1], cfg)
}

func (m *Manager) loadLocalConfig(cfg *Config) error {
	return m.loadYAMLFile(m.Paths()[2], cfg)
}

func (m *Manager) loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if v := os.Getenv("MUSESWARM_ROUND_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Swarm.RoundCap = n
		}
	}
	if v := os.Getenv("MUSESWARM_TERMINATION_TOKEN"); v != "" {
		cfg.Swarm.TerminationToken = v
	}
	if v := os.Getenv("MUSESWARM_SELECTION"); v != "" {
		cfg.Swarm.Selection = strings.ToLower(v)
	}
	if v := os.Getenv("MUSESWARM_TURN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Swarm.TurnTimeout = d
		}
	}
	if v := os.Getenv("MUSESWARM_BUDGET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Swarm.Budget = d
		}
	}
	if v := os.Getenv("MUSESWARM_MUSE_MODEL"); v != "" {
		cfg.Agents.Muse.Binding.Model = v
	}
	if v := os.Getenv("MUSESWARM_CRITIC_MODEL"); v != "" {
		cfg.Agents.Critic.Binding.Model = v
	}
	if v := os.Getenv("MUSESWARM_MANAGER_MODEL"); v != "" {
		cfg.Agents.Manager.Model = v
	}
	if v := os.Getenv("MUSESWARM_TOOL_MODEL"); v != "" {
		cfg.Tool.Binding.Model = v
	}
	if v := os.Getenv("MUSESWARM_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MUSESWARM_SERVER_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxSessions = n
		}
	}
	if v := os.Getenv("MUSESWARM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MUSESWARM_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
}

func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func (m *Manager) Reload() error {
	return m.Load()
}

func (m *Manager) Close() error {
	m.watchOnce.Do(func() {
		close(m.stopWatch)
	})
	return nil
}
