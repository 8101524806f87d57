package dns

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLookup_ReturnsIPLiteralUnchanged(t *testing.T) {
	r := NewResolver()
	r.lookup = func(context.Context, string, string) ([]string, error) {
		t.Fatal("lookup must not be called for IP literals")
		return nil, nil
	}

	for _, host := range []string{"127.0.0.1", "::1"} {
		got, err := r.Lookup(context.Background(), host)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", host, err)
		}
		if got != host {
			t.Fatalf("Lookup(%q)=%q, want unchanged", host, got)
		}
	}
}

func TestLookup_PrefersIPv4FromSystemResolver(t *testing.T) {
	r := NewResolver()
	r.lookup = func(_ context.Context, host, server string) ([]string, error) {
		if server != "" {
			t.Fatalf("unexpected public lookup via %s", server)
		}
		return []string{"2001:db8::1", "192.0.2.7"}, nil
	}

	got, err := r.Lookup(context.Background(), "relay.example")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "192.0.2.7" {
		t.Fatalf("Lookup=%q, want 192.0.2.7", got)
	}
}

func TestLookup_FallsBackToPublicServers(t *testing.T) {
	var remote atomic.Int32
	r := NewResolver()
	r.Servers = []string{"a", "b", "c"}
	r.lookup = func(_ context.Context, host, server string) ([]string, error) {
		switch server {
		case "":
			return nil, errors.New("system resolver down")
		case "b":
			remote.Add(1)
			return []string{"198.51.100.4"}, nil
		default:
			remote.Add(1)
			return nil, errors.New("servfail")
		}
	}

	got, err := r.Lookup(context.Background(), "relay.example")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "198.51.100.4" {
		t.Fatalf("Lookup=%q, want 198.51.100.4", got)
	}
	if remote.Load() == 0 {
		t.Fatalf("expected public servers to be queried")
	}
}

func TestLookup_AllServersFail(t *testing.T) {
	r := NewResolver()
	r.Servers = []string{"a", "b"}
	r.RemoteTimeout = time.Second
	r.lookup = func(context.Context, string, string) ([]string, error) {
		return nil, errors.New("nxdomain")
	}

	if _, err := r.Lookup(context.Background(), "relay.example"); err == nil {
		t.Fatalf("expected error when every resolver fails")
	}
}
