package main

import (
	"fmt"
	"log/slog"

	"robotmesh"
	"robotmesh/config"
	"robotmesh/node/mesh"
	"robotmesh/radio/sim"
)

// newRadio builds the configured radio backend.
func newRadio(cfg *config.Config) (*sim.Radio, error) {
	air := sim.NewAir()
	for _, b := range cfg.Radio.Beacons {
		id, err := robotmesh.ParseHardwareID(b.HardwareID)
		if err != nil {
			return nil, err
		}
		beacon := sim.Beacon{
			HardwareID:     id,
			Channel:        b.Channel,
			SSID:           b.SSID,
			SignalStrength: b.RSSI,
			Refuse:         b.Refuse,
		}
		if beacon.Channel == 0 {
			beacon.Channel = cfg.Mesh.Channel
		}
		if beacon.SSID == "" {
			beacon.SSID = cfg.Mesh.SSID
		}
		air.Broadcast(beacon)
	}
	slog.Debug("simulated air ready", "beacons", len(cfg.Radio.Beacons))
	return sim.New(air, sim.WithCountryCode(cfg.Mesh.CountryCode), sim.WithScanWindow()), nil
}

// newController builds a mesh controller from cfg over radio.
func newController(cfg *config.Config, radio mesh.Radio, opts ...mesh.Option) (*mesh.Controller, error) {
	meshCfg, err := cfg.MeshConfig()
	if err != nil {
		return nil, fmt.Errorf("mesh config: %w", err)
	}
	proto, err := cfg.ProtocolSet()
	if err != nil {
		return nil, err
	}
	base := []mesh.Option{
		mesh.WithProtocol(proto),
		mesh.WithCacheCapacity(cfg.Node.CacheCapacity),
		mesh.WithConnectTimeout(cfg.Node.ConnectTimeout),
	}
	return mesh.New(radio, meshCfg, append(base, opts...)...), nil
}
