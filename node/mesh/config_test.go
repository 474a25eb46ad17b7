package mesh

import (
	"errors"
	"strings"
	"testing"

	"robotmesh"
)

func TestNewConfig_RejectsLongSSID(t *testing.T) {
	_, err := NewConfig(9, strings.Repeat("s", 33), "pw")
	if !errors.Is(err, ErrIdentifierTooLong) {
		t.Fatalf("err = %v, want ErrIdentifierTooLong", err)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %T, want *ConfigError", err)
	}
	if cfgErr.Field != "ssid" || cfgErr.Len != 33 || cfgErr.Max != MaxSSIDLength {
		t.Errorf("ConfigError = %+v", cfgErr)
	}
}

func TestNewConfig_RejectsLongPassword(t *testing.T) {
	_, err := NewConfig(9, "mesh", strings.Repeat("p", 64))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "password" {
		t.Fatalf("err = %v, want password ConfigError", err)
	}
}

func TestNewConfig_AcceptsLimits(t *testing.T) {
	cfg, err := NewConfig(14, strings.Repeat("s", 32), strings.Repeat("p", 63))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Channel() != 14 {
		t.Errorf("Channel() = %d, want 14", cfg.Channel())
	}
	if _, ok := cfg.Target(); ok {
		t.Error("new config should have no target")
	}
}

func TestConfig_WithTargetDoesNotMutate(t *testing.T) {
	base, err := NewConfig(9, "mesh-hello", "mesh-hello-password")
	if err != nil {
		t.Fatal(err)
	}
	peer := robotmesh.HardwareID{1, 2, 3, 4, 5, 6}

	targeted := base.WithTarget(peer)

	if _, ok := base.Target(); ok {
		t.Error("WithTarget mutated the receiver")
	}
	got, ok := targeted.Target()
	if !ok || got != peer {
		t.Errorf("Target() = %s %v, want %s true", got, ok, peer)
	}
	if _, ok := targeted.WithoutTarget().Target(); ok {
		t.Error("WithoutTarget kept the target")
	}
}

func TestConfig_ModeConfig(t *testing.T) {
	cfg, err := NewConfig(9, "mesh-hello", "mesh-hello-password")
	if err != nil {
		t.Fatal(err)
	}

	bare := cfg.ModeConfig()
	if bare.Station != (StationConfig{}) {
		t.Errorf("station without target = %+v, want zero", bare.Station)
	}
	wantAP := AccessPointConfig{Channel: 9, SSID: "mesh-hello", Password: "mesh-hello-password", Auth: AuthWPA3Personal}
	if bare.AccessPoint != wantAP {
		t.Errorf("access point = %+v, want %+v", bare.AccessPoint, wantAP)
	}

	peer := robotmesh.HardwareID{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	targeted := cfg.WithTarget(peer).ModeConfig()
	if !targeted.Station.HasBSSID || targeted.Station.BSSID != peer {
		t.Errorf("station bssid = %s %v, want %s", targeted.Station.BSSID, targeted.Station.HasBSSID, peer)
	}
	if targeted.Station.Channel != 9 || targeted.Station.Auth != AuthWPA3Personal {
		t.Errorf("station = %+v", targeted.Station)
	}
	if targeted.AccessPoint != wantAP {
		t.Errorf("targeted access point = %+v, want %+v", targeted.AccessPoint, wantAP)
	}
}

func TestConfig_ScanParams(t *testing.T) {
	cfg, _ := NewConfig(6, "m", "p")
	p := cfg.ScanParams()
	if p.Channel != 6 || p.SSID != "m" || p.Passive != DefaultScanWindow {
		t.Errorf("ScanParams() = %+v", p)
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{in: "lr", want: ProtocolLR},
		{in: "b+g+n", want: Protocol80211B | Protocol80211G | Protocol80211N},
		{in: "B, LR", want: Protocol80211B | ProtocolLR},
		{in: "", wantErr: true},
		{in: "ax", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseProtocol(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseProtocol(%q) = %s, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseProtocol(%q) = %s, %v, want %s", tt.in, got, err, tt.want)
		}
		if back, err := ParseProtocol(got.String()); err != nil || back != got {
			t.Errorf("round trip %s = %s, %v", got, back, err)
		}
	}
}
