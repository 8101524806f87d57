package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/BioHazard786/warpmesh/internal/config"
	"github.com/spf13/cobra"
)

func TestRoomFlags(t *testing.T) {
	var f roomFlags
	c := &cobra.Command{Use: "test"}
	f.register(c)

	err := c.Flags().Parse([]string{
		"--server", "ws://localhost:8080/ws",
		"-r", "-n", "alice",
		"--media", "audio",
		"--timeout", "5s",
		"--plain",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	opts := f.options()
	want := config.Options{
		Server:             "ws://localhost:8080/ws",
		ForceRelay:         true,
		DisplayName:        "alice",
		Media:              "audio",
		NegotiationTimeout: 5 * time.Second,
	}
	if opts != want {
		t.Errorf("options() = %+v, want %+v", opts, want)
	}
	if !f.plain {
		t.Error("--plain not set")
	}
}

func TestLoadConfig_ForceRelayUsesDefaultTURN(t *testing.T) {
	t.Setenv("TURN_SERVER", "")
	t.Setenv("SIGNAL_URL", "")
	cfg, err := LoadConfig(config.Options{ForceRelay: true})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.ForceRelay || cfg.GetTURNServers() == nil {
		t.Errorf("config = %+v, want forced relay over the default TURN server", cfg)
	}
}

func TestRunRelay_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runRelay(ctx, &config.RelayConfig{Addr: "127.0.0.1:0", MaxRoomSize: 4, LogLevel: "error"})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runRelay = %v, want nil after cancel", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"create", "join", "relay"} {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
}
