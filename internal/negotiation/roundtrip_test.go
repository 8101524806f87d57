package negotiation

import (
	"context"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/BioHazard786/warpmesh/internal/relay"
	"github.com/BioHazard786/warpmesh/internal/signaling"
	"github.com/rs/zerolog"
)

func TestRoundTrip_InMemory(t *testing.T) {
	bus := newMemBus()
	chA, chB := bus.connect("A"), bus.connect("B")
	factoryA, factoryB := newFakeFactory(), newFakeFactory()
	a := NewCoordinator(chA, factoryA, fakeStream("cam-a"), testOptions())
	b := NewCoordinator(chB, factoryB, fakeStream("cam-b"), testOptions())
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	roomID, err := a.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if roomID != "R1" {
		t.Fatalf("room = %q, want R1", roomID)
	}
	if err := b.Join(ctx, roomID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	chA.expect(t, signaling.MessageTypeCreate, "")
	chA.expect(t, signaling.MessageTypeJoin, "")
	chA.expect(t, signaling.MessageTypeOffer, "B")
	chB.expect(t, signaling.MessageTypeJoin, "")
	chB.expect(t, signaling.MessageTypeAnswer, "A")

	waitPhase(t, a, "B", PhaseStable)
	waitPhase(t, b, "A", PhaseStable)

	chA.expectQuiet(t, quiet)
	chB.expectQuiet(t, quiet)

	if factoryA.createdFor("B") != 1 || factoryB.createdFor("A") != 1 {
		t.Errorf("connections A→B=%d B→A=%d, want 1 each", factoryA.createdFor("B"), factoryB.createdFor("A"))
	}
	if calls := factoryB.peer(t, "A").Calls(); !slices.Contains(calls, "remote:offer") || slices.Contains(calls, "create-offer") {
		t.Errorf("B calls = %v, want B to answer only", calls)
	}

	// B leaving dissolves A's session.
	if err := b.Leave(ctx); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	waitFor(t, "A to drop B", func() bool { return len(a.Peers()) == 0 })
}

func TestRoundTrip_ThreePeerMesh(t *testing.T) {
	bus := newMemBus()
	ids := []string{"A", "B", "C"}
	coords := map[string]*Coordinator{}
	for _, id := range ids {
		c := NewCoordinator(bus.connect(id), newFakeFactory(), fakeStream("cam-"+id), testOptions())
		t.Cleanup(func() { c.Close() })
		coords[id] = c
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	roomID, err := coords["A"].CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for _, id := range ids[1:] {
		if err := coords[id].Join(ctx, roomID); err != nil {
			t.Fatalf("Join %s: %v", id, err)
		}
	}

	for _, id := range ids {
		for _, other := range ids {
			if other == id {
				continue
			}
			waitPhase(t, coords[id], other, PhaseStable)
		}
	}
}

func TestRoundTrip_ThroughRelay(t *testing.T) {
	hub := relay.NewHub(relay.DefaultOptions(), zerolog.Nop())
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(hubCtx)
	}()
	srv := httptest.NewServer(relay.NewRouter(hub, zerolog.Nop()))
	t.Cleanup(func() {
		srv.Close()
		stopHub()
		<-hubDone
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	dial := func() *signaling.Client {
		c, err := signaling.Dial(ctx, url)
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		t.Cleanup(c.Close)
		return c
	}
	clientA, clientB := dial(), dial()

	a := NewCoordinator(clientA, newFakeFactory(), fakeStream("cam-a"), testOptions())
	b := NewCoordinator(clientB, newFakeFactory(), fakeStream("cam-b"), testOptions())
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})

	roomID, err := a.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := b.Join(ctx, roomID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	waitPhase(t, a, clientB.LocalID(), PhaseStable)
	waitPhase(t, b, clientA.LocalID(), PhaseStable)

	if err := a.Leave(ctx); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	waitFor(t, "B to drop A", func() bool { return len(b.Peers()) == 0 })
}
