// Package config loads mesh node configuration.
//
// Config is read from $XDG_CONFIG_HOME/robotmesh/config.yaml (defaults to
// ~/.config/robotmesh/config.yaml). A missing file yields defaults. The
// MESH_CHANNEL, MESH_SSID, MESH_PASSWORD and ESP_WIFI_CONFIG_COUNTRY_CODE
// environment variables override the file. Without either, nodes join the
// "mesh-hello" network with the shared DefaultPassword; set MESH_PASSWORD on
// any fleet that should not accept the stock credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"robotmesh"
	"robotmesh/node/mesh"

	"gopkg.in/yaml.v3"
)

const (
	EnvChannel     = "MESH_CHANNEL"
	EnvSSID        = "MESH_SSID"
	EnvPassword    = "MESH_PASSWORD"
	EnvCountryCode = "ESP_WIFI_CONFIG_COUNTRY_CODE"
)

const (
	DefaultChannel = 9
	DefaultSSID    = "mesh-hello"

	// DefaultPassword is the stock mesh-hello passphrase. Override it per fleet.
	DefaultPassword = "mesh-hello-password"

	minChannel = 1
	maxChannel = 14
)

var (
	ErrInvalidChannel     = errors.New("invalid channel")
	ErrInvalidCountryCode = errors.New("invalid country code")
)

// Mesh is the network every node on the mesh shares.
type Mesh struct {
	Channel  uint8  `yaml:"channel"`
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	// CountryCode is the two-letter regulatory domain, e.g. "NZ".
	CountryCode string `yaml:"country-code,omitempty"`
	// Protocol is a "+"-joined protocol list, e.g. "lr" or "b+g+n".
	Protocol string `yaml:"protocol,omitempty"`
}

// Node tunes the controller and its loop.
type Node struct {
	CacheCapacity  int           `yaml:"cache-capacity,omitempty"`
	ConnectTimeout time.Duration `yaml:"connect-timeout,omitempty"`
	IdleYield      time.Duration `yaml:"idle-yield,omitempty"`
}

// Beacon is a simulated peer on the air.
type Beacon struct {
	HardwareID string `yaml:"hardware-id"`
	// Channel and SSID default to the mesh's own.
	Channel uint8  `yaml:"channel,omitempty"`
	SSID    string `yaml:"ssid,omitempty"`
	RSSI    int8   `yaml:"rssi"`
	Refuse  bool   `yaml:"refuse,omitempty"`
}

// Radio selects the radio backend.
type Radio struct {
	// Driver names the backend. Only "sim" is built in.
	Driver  string   `yaml:"driver,omitempty"`
	Beacons []Beacon `yaml:"beacons,omitempty"`
}

// Daemon configures the supervising surfaces.
type Daemon struct {
	Socket      string `yaml:"socket,omitempty"`
	MetricsAddr string `yaml:"metrics-addr,omitempty"`
}

// Config is the full node configuration.
type Config struct {
	Mesh   Mesh   `yaml:"mesh"`
	Node   Node   `yaml:"node,omitempty"`
	Radio  Radio  `yaml:"radio,omitempty"`
	Daemon Daemon `yaml:"daemon,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Mesh: Mesh{
			Channel:  DefaultChannel,
			SSID:     DefaultSSID,
			Password: DefaultPassword,
			Protocol: mesh.DefaultProtocol.String(),
		},
		Node: Node{
			CacheCapacity:  mesh.DefaultCacheCapacity,
			ConnectTimeout: mesh.DefaultConnectTimeout,
		},
		Radio: Radio{Driver: "sim"},
	}
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/robotmesh/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "robotmesh", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "robotmesh", "config.yaml")
}

// Load reads path (Path() when empty), applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvChannel); ok && v != "" {
		ch, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("%s: %w: %q", EnvChannel, ErrInvalidChannel, v)
		}
		c.Mesh.Channel = uint8(ch)
	}
	if v, ok := lookup(EnvSSID); ok && v != "" {
		c.Mesh.SSID = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.Mesh.Password = v
	}
	if v, ok := lookup(EnvCountryCode); ok && v != "" {
		c.Mesh.CountryCode = v
	}
	return nil
}

// Validate checks ranges the radio cannot check for itself. SSID and
// password lengths are checked by MeshConfig.
func (c *Config) Validate() error {
	if c.Mesh.Channel < minChannel || c.Mesh.Channel > maxChannel {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidChannel, c.Mesh.Channel, minChannel, maxChannel)
	}
	if cc := c.Mesh.CountryCode; cc != "" && !isCountryCode(cc) {
		return fmt.Errorf("%w: %q (want two ASCII letters)", ErrInvalidCountryCode, cc)
	}
	if _, err := c.ProtocolSet(); err != nil {
		return err
	}
	if c.Node.CacheCapacity < 0 {
		return fmt.Errorf("cache capacity must not be negative: %d", c.Node.CacheCapacity)
	}
	if c.Radio.Driver != "" && c.Radio.Driver != "sim" {
		return fmt.Errorf("unknown radio driver %q", c.Radio.Driver)
	}
	for i, b := range c.Radio.Beacons {
		if _, err := robotmesh.ParseHardwareID(b.HardwareID); err != nil {
			return fmt.Errorf("beacon %d: %w", i, err)
		}
	}
	return nil
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := range len(s) {
		ch := s[i]
		if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	return true
}

// MeshConfig builds the validated mesh configuration.
func (c *Config) MeshConfig() (mesh.Config, error) {
	return mesh.NewConfig(c.Mesh.Channel, c.Mesh.SSID, c.Mesh.Password)
}

// ProtocolSet parses the configured protocols. Empty means the default.
func (c *Config) ProtocolSet() (mesh.Protocol, error) {
	if c.Mesh.Protocol == "" {
		return mesh.DefaultProtocol, nil
	}
	return mesh.ParseProtocol(c.Mesh.Protocol)
}
