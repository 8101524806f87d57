package config

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DOMAIN", "SIGNAL_URL", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD",
		"FORCE_RELAY", "NEGOTIATION_TIMEOUT", "DISPLAY_NAME", "MEDIA", "PORT", "MAX_ROOM_SIZE", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebSocketURL != "wss://"+DefaultDomain+"/ws" {
		t.Errorf("WebSocketURL = %q", cfg.WebSocketURL)
	}
	if cfg.NegotiationTimeout != DefaultNegotiationTimeout {
		t.Errorf("NegotiationTimeout = %v", cfg.NegotiationTimeout)
	}
	if !slices.Equal(cfg.Media, []string{MediaAudio, MediaVideo}) {
		t.Errorf("Media = %v", cfg.Media)
	}
	if cfg.DisplayName == "" {
		t.Error("DisplayName is empty")
	}
	if cfg.ForceRelay {
		t.Error("ForceRelay defaulted to true")
	}
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOMAIN", "env.example")
	t.Setenv("STUN_SERVER", "stun:env.example:3478")
	t.Setenv("NEGOTIATION_TIMEOUT", "5s")
	t.Setenv("DISPLAY_NAME", "env-name")

	cfg, err := Load(Options{STUNServer: "stun:flag.example:3478"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebSocketURL != "wss://env.example/ws" {
		t.Errorf("WebSocketURL = %q, want the env domain", cfg.WebSocketURL)
	}
	if cfg.STUNServer != "stun:flag.example:3478" {
		t.Errorf("STUNServer = %q, want the flag value", cfg.STUNServer)
	}
	if cfg.NegotiationTimeout != 5*time.Second {
		t.Errorf("NegotiationTimeout = %v, want 5s", cfg.NegotiationTimeout)
	}
	if cfg.DisplayName != "env-name" {
		t.Errorf("DisplayName = %q", cfg.DisplayName)
	}

	t.Setenv("SIGNAL_URL", "ws://localhost:8080/ws")
	cfg, err = Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebSocketURL != "ws://localhost:8080/ws" {
		t.Errorf("WebSocketURL = %q, want SIGNAL_URL", cfg.WebSocketURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		opts Options
		want error
	}{
		{name: "http server", opts: Options{Server: "http://localhost/ws"}, want: ErrInvalidServerURL},
		{name: "unknown media", opts: Options{Media: "audio,screen"}, want: ErrInvalidMedia},
		{name: "bad timeout", env: map[string]string{"NEGOTIATION_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.opts)
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Load = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseMedia(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"audio", []string{"audio"}},
		{" Video , audio,video", []string{"video", "audio"}},
		{"none", nil},
	}
	for _, tt := range tests {
		got, err := parseMedia(tt.in)
		if err != nil {
			t.Errorf("parseMedia(%q): %v", tt.in, err)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("parseMedia(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoomIDFromArg(t *testing.T) {
	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{arg: "brave-otter-ramen-42", want: "brave-otter-ramen-42"},
		{arg: "https://warpmesh.qzz.io/r/brave-otter", want: "brave-otter"},
		{arg: "https://warpmesh.qzz.io/r/brave-otter/", want: "brave-otter"},
		{arg: "https://warpmesh.qzz.io/rooms", wantErr: true},
		{arg: "a/b", wantErr: true},
		{arg: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := RoomIDFromArg(tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("RoomIDFromArg(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RoomIDFromArg(%q) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}

func TestGetTURNServers(t *testing.T) {
	cfg := &Config{TURNServer: "turn:relay.example"}
	want := []string{
		"turn:relay.example:3478?transport=udp",
		"turn:relay.example:3478?transport=tcp",
		"turns:relay.example:5349?transport=tcp",
	}
	if got := cfg.GetTURNServers(); !slices.Equal(got, want) {
		t.Errorf("GetTURNServers() = %v, want %v", got, want)
	}
	if got := (&Config{}).GetTURNServers(); got != nil {
		t.Errorf("GetTURNServers() without TURN = %v", got)
	}
}

func TestLoadRelay(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadRelay(RelayOptions{})
	if err != nil {
		t.Fatalf("LoadRelay: %v", err)
	}
	if cfg.Addr != DefaultRelayAddr || cfg.MaxRoomSize != DefaultMaxRoomSize {
		t.Errorf("LoadRelay() = %+v", cfg)
	}

	t.Setenv("PORT", "9000")
	t.Setenv("MAX_ROOM_SIZE", "4")
	cfg, err = LoadRelay(RelayOptions{})
	if err != nil {
		t.Fatalf("LoadRelay: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.MaxRoomSize != 4 {
		t.Errorf("LoadRelay() = %+v, want :9000 and 4", cfg)
	}

	cfg, err = LoadRelay(RelayOptions{Addr: "127.0.0.1:7000", MaxRoomSize: 8})
	if err != nil {
		t.Fatalf("LoadRelay: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" || cfg.MaxRoomSize != 8 {
		t.Errorf("LoadRelay() = %+v, want flag values", cfg)
	}

	t.Setenv("MAX_ROOM_SIZE", "1")
	if _, err := LoadRelay(RelayOptions{}); err == nil {
		t.Error("LoadRelay accepted a room size of 1")
	}
}
