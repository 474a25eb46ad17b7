package mesh

import (
	"errors"
	"fmt"
	"time"

	"robotmesh"
)

// Limits imposed by the radio's station/access-point configuration.
const (
	MaxSSIDLength     = 32
	MaxPasswordLength = 63
)

// DefaultScanWindow is the passive listen time per scan: one common beacon
// period (100 TU ≈ 102.4 ms, rounded up).
const DefaultScanWindow = 103 * time.Millisecond

var ErrIdentifierTooLong = errors.New("identifier too long")

// ConfigError reports an invalid mesh configuration value.
type ConfigError struct {
	Field string
	Len   int
	Max   int
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("mesh config %s: %v (%d bytes, max %d)", e.Field, e.Err, e.Len, e.Max)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config is the immutable description of a mesh: the shared channel,
// identity and secret, plus an optional peer to target. Derive variants
// with WithTarget; never mutate.
type Config struct {
	channel  uint8
	ssid     string
	password string

	target    robotmesh.HardwareID
	hasTarget bool
}

// NewConfig validates identifier lengths against the radio's limits.
// It does no radio interaction.
func NewConfig(channel uint8, ssid, password string) (Config, error) {
	if len(ssid) > MaxSSIDLength {
		return Config{}, &ConfigError{Field: "ssid", Len: len(ssid), Max: MaxSSIDLength, Err: ErrIdentifierTooLong}
	}
	if len(password) > MaxPasswordLength {
		return Config{}, &ConfigError{Field: "password", Len: len(password), Max: MaxPasswordLength, Err: ErrIdentifierTooLong}
	}
	return Config{channel: channel, ssid: ssid, password: password}, nil
}

func (c Config) Channel() uint8   { return c.channel }
func (c Config) SSID() string     { return c.ssid }
func (c Config) Password() string { return c.password }

// Target returns the peer this config connects to, if any.
func (c Config) Target() (robotmesh.HardwareID, bool) {
	return c.target, c.hasTarget
}

// WithTarget returns a copy of c aimed at peer. c is unchanged.
func (c Config) WithTarget(peer robotmesh.HardwareID) Config {
	c.target = peer
	c.hasTarget = true
	return c
}

// WithoutTarget returns a copy of c with no target peer.
func (c Config) WithoutTarget() Config {
	c.target = robotmesh.HardwareID{}
	c.hasTarget = false
	return c
}

// AuthMethod selects link-layer authentication.
type AuthMethod uint8

const (
	AuthNone AuthMethod = iota
	AuthWPA3Personal
)

func (a AuthMethod) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthWPA3Personal:
		return "wpa3-personal"
	default:
		return "unknown"
	}
}

// AccessPointConfig is the access-point half of a ModeConfig.
type AccessPointConfig struct {
	Channel  uint8
	SSID     string
	Password string
	Auth     AuthMethod
}

// StationConfig is the station half of a ModeConfig. The zero value is an
// idle station that associates with nobody.
type StationConfig struct {
	Channel  uint8
	SSID     string
	Password string
	Auth     AuthMethod
	BSSID    robotmesh.HardwareID
	HasBSSID bool
}

// ModeConfig is the combined station + access-point parameter set applied
// to the radio before start and before every connect.
type ModeConfig struct {
	Station     StationConfig
	AccessPoint AccessPointConfig
}

// ModeConfig builds the radio parameters for c. The access point always
// advertises the mesh; the station is only populated when c has a target.
func (c Config) ModeConfig() ModeConfig {
	mc := ModeConfig{
		AccessPoint: AccessPointConfig{
			Channel:  c.channel,
			SSID:     c.ssid,
			Password: c.password,
			Auth:     AuthWPA3Personal,
		},
	}
	if c.hasTarget {
		mc.Station = StationConfig{
			Channel:  c.channel,
			SSID:     c.ssid,
			Password: c.password,
			Auth:     AuthWPA3Personal,
			BSSID:    c.target,
			HasBSSID: true,
		}
	}
	return mc
}

// ScanParams restricts a passive scan to the mesh channel and identity.
type ScanParams struct {
	Channel uint8
	SSID    string
	Passive time.Duration
}

// ScanParams returns the scan parameters for c using DefaultScanWindow.
func (c Config) ScanParams() ScanParams {
	return ScanParams{Channel: c.channel, SSID: c.ssid, Passive: DefaultScanWindow}
}
