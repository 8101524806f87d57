package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values (production)
const (
	DefaultDomain             = "warpmesh.qzz.io"
	DefaultSTUN               = "stun:stun.l.google.com:19302"
	DefaultTURN               = "turn:warpmesh.qzz.io"
	DefaultTURNUser           = "warpmesh"
	DefaultTURNPass           = "warpmesh-secret"
	DefaultNegotiationTimeout = 30 * time.Second
	DefaultDisplayName        = "warpmesh"

	MediaAudio = "audio"
	MediaVideo = "video"
)

var (
	ErrInvalidServerURL = errors.New("signaling server must be a ws:// or wss:// URL")
	ErrInvalidMedia     = errors.New("unknown media kind")
	ErrInvalidRoom      = errors.New("invalid room id or link")
)

// Config holds client configuration
type Config struct {
	// Domain is the relay domain, used for room links
	Domain string

	// WebSocketURL is the signaling endpoint
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	NegotiationTimeout time.Duration
	DisplayName        string

	// Media lists the local track kinds to publish. Empty means receive-only.
	Media []string
}

// Options carries CLI flag overrides. Zero values fall through to the environment.
type Options struct {
	Server             string
	Domain             string
	STUNServer         string
	TURNServer         string
	TURNUser           string
	TURNPass           string
	ForceRelay         bool
	NegotiationTimeout time.Duration
	DisplayName        string
	Media              string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := first(opts.Domain, os.Getenv("DOMAIN"), DefaultDomain)

	wsURL := first(opts.Server, os.Getenv("SIGNAL_URL"), fmt.Sprintf("wss://%s/ws", domain))
	u, err := url.Parse(wsURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServerURL, wsURL)
	}

	timeout := opts.NegotiationTimeout
	if timeout == 0 {
		timeout = DefaultNegotiationTimeout
		if v := os.Getenv("NEGOTIATION_TIMEOUT"); v != "" {
			if timeout, err = time.ParseDuration(v); err != nil {
				return nil, fmt.Errorf("NEGOTIATION_TIMEOUT: %w", err)
			}
		}
	}
	if timeout < 0 {
		timeout = 0
	}

	media, err := parseMedia(first(opts.Media, os.Getenv("MEDIA"), MediaAudio+","+MediaVideo))
	if err != nil {
		return nil, err
	}

	forceRelay := opts.ForceRelay
	if !forceRelay {
		forceRelay, _ = strconv.ParseBool(os.Getenv("FORCE_RELAY"))
	}

	return &Config{
		Domain:             domain,
		WebSocketURL:       wsURL,
		STUNServer:         first(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer:         first(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN),
		TURNUser:           first(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser),
		TURNPass:           first(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass),
		ForceRelay:         forceRelay,
		NegotiationTimeout: timeout,
		DisplayName:        first(opts.DisplayName, os.Getenv("DISPLAY_NAME"), hostname()),
		Media:              media,
	}, nil
}

// first returns the first non-empty value.
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return DefaultDisplayName
}

// parseMedia accepts a comma separated list of kinds, or "none".
func parseMedia(s string) ([]string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "none" {
		return nil, nil
	}
	var kinds []string
	seen := make(map[string]bool)
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		if k != MediaAudio && k != MediaVideo {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMedia, k)
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// GetRoomLink returns the shareable URL for a room ID
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/r/%s", c.Domain, roomID)
}

// RoomIDFromArg accepts either a bare room id or a room link.
func RoomIDFromArg(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", ErrInvalidRoom
	}
	if !strings.Contains(arg, "://") {
		if strings.ContainsAny(arg, "/ ") {
			return "", fmt.Errorf("%w: %q", ErrInvalidRoom, arg)
		}
		return arg, nil
	}

	u, err := url.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRoom, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] != "r" || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoom, arg)
	}
	return parts[1], nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

const (
	DefaultRelayAddr   = ":8080"
	DefaultMaxRoomSize = 16
)

// RelayConfig holds relay server configuration
type RelayConfig struct {
	Addr        string
	MaxRoomSize int
	LogLevel    string
}

// RelayOptions carries CLI flag overrides for the relay.
type RelayOptions struct {
	Addr        string
	MaxRoomSize int
}

// LoadRelay reads relay configuration: flags > env > defaults.
func LoadRelay(opts RelayOptions) (*RelayConfig, error) {
	addr := opts.Addr
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + strings.TrimPrefix(port, ":")
		}
	}
	if addr == "" {
		addr = DefaultRelayAddr
	}

	size := opts.MaxRoomSize
	if size == 0 {
		size = DefaultMaxRoomSize
		if v := os.Getenv("MAX_ROOM_SIZE"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("MAX_ROOM_SIZE: %w", err)
			}
			size = n
		}
	}
	if size < 2 {
		return nil, fmt.Errorf("max room size must be at least 2, got %d", size)
	}

	return &RelayConfig{
		Addr:        addr,
		MaxRoomSize: size,
		LogLevel:    first(os.Getenv("LOG_LEVEL"), "info"),
	}, nil
}
