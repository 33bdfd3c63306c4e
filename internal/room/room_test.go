package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func execute(t *testing.T, r *Room, cmd engine.Command) Result {
	t.Helper()
	reply := make(chan Result, 1)
	r.Inbox() <- Execute{Cmd: cmd, Reply: reply}
	select {
	case res := <-reply:
		return res
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for execute result")
		return Result{} // unreachable
	}
}

func newTestRoom(t *testing.T, initial engine.State) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRoom(ctx, "TEST01", initial, zap.NewNop())
}

func stateWithPlayer(t *testing.T, id, name string, role engine.Role) engine.State {
	t.Helper()
	s := engine.NewEmptyState()
	_, s, err := engine.Apply(s, engine.Command{Type: engine.CmdJoinGame, PlayerID: id, Name: name, Role: role})
	if err != nil {
		t.Fatalf("seed join: %v", err)
	}
	return s
}

func TestRoom_SubscribeSendsCurrentSnapshot(t *testing.T) {
	r := newTestRoom(t, stateWithPlayer(t, "p1", "Alice", engine.RolePlayer))

	out := make(chan Snapshot, 2)
	reply := make(chan error, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "p1", Outbox: out, Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	first := recvSnapshot(t, out, 100*time.Millisecond)
	if first.Version != 0 {
		t.Fatalf("after subscribe: want version=0, got %d", first.Version)
	}
	if _, ok := first.State.Players["p1"]; !ok {
		t.Fatalf("snapshot missing seeded player")
	}
}

func TestRoom_SubscribeUnknownPlayerFails(t *testing.T) {
	r := newTestRoom(t, engine.NewEmptyState())

	out := make(chan Snapshot, 1)
	reply := make(chan error, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "ghost", Outbox: out, Reply: reply}
	if err := <-reply; !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestRoom_MutationBroadcastsOneSnapshotAndVersionIncrements(t *testing.T) {
	r := newTestRoom(t, stateWithPlayer(t, "p1", "Alice", engine.RolePlayer))

	out := make(chan Snapshot, 4)
	reply := make(chan error, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "p1", Outbox: out, Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = recvSnapshot(t, out, 100*time.Millisecond) // version 0

	res := execute(t, r, engine.Command{Type: engine.CmdToggleReady, PlayerID: "p1"})
	if res.Err != nil {
		t.Fatalf("toggle: %v", res.Err)
	}
	if res.Version != 1 {
		t.Fatalf("want version=1, got %d", res.Version)
	}

	snap := recvSnapshot(t, out, 100*time.Millisecond)
	if snap.Version != 1 {
		t.Fatalf("broadcast: want version=1, got %d", snap.Version)
	}
	if !snap.State.Players["p1"].Ready {
		t.Fatalf("broadcast state missing the mutation")
	}
	// Exactly one snapshot per accepted mutation.
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestRoom_RejectedCommandDoesNotBroadcast(t *testing.T) {
	r := newTestRoom(t, stateWithPlayer(t, "p1", "Alice", engine.RolePlayer))

	out := make(chan Snapshot, 2)
	reply := make(chan error, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "p1", Outbox: out, Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	res := execute(t, r, engine.Command{Type: engine.CmdToggleReady, PlayerID: "ghost"})
	if !errors.Is(res.Err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", res.Err)
	}
	if res.Version != 0 {
		t.Fatalf("rejected command must not bump version, got %d", res.Version)
	}
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestRoom_BroadcastOrderMatchesMutationOrder(t *testing.T) {
	s := stateWithPlayer(t, "p1", "Alice", engine.RolePlayer)
	s = mustApply(t, s, engine.Command{Type: engine.CmdJoinGame, PlayerID: "p2", Name: "Bob", Role: engine.RolePlayer})
	r := newTestRoom(t, s)

	out := make(chan Snapshot, 8)
	reply := make(chan error, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "p1", Outbox: out, Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	for _, id := range []string{"p1", "p2", "p1"} {
		if res := execute(t, r, engine.Command{Type: engine.CmdToggleReady, PlayerID: id}); res.Err != nil {
			t.Fatalf("toggle %s: %v", id, res.Err)
		}
	}

	for want := 1; want <= 3; want++ {
		snap := recvSnapshot(t, out, 100*time.Millisecond)
		if snap.Version != want {
			t.Fatalf("out of order: want version=%d, got %d", want, snap.Version)
		}
	}
}

func TestRoom_DropSlowClient(t *testing.T) {
	r := newTestRoom(t, stateWithPlayer(t, "p1", "Alice", engine.RolePlayer))

	// Buffer of 1 is filled by the subscribe snapshot; the next broadcast
	// finds it full and drops the client.
	out := make(chan Snapshot, 1)
	reply := make(chan error, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "p1", Outbox: out, Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if res := execute(t, r, engine.Command{Type: engine.CmdToggleReady, PlayerID: "p1"}); res.Err != nil {
		t.Fatalf("toggle: %v", res.Err)
	}

	viewReply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: viewReply}
	view := recvView(t, viewReply, 100*time.Millisecond)

	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestRoom_UnsubscribeRemovesBoundPlayerAndBroadcasts(t *testing.T) {
	s := stateWithPlayer(t, "p1", "Alice", engine.RolePlayer)
	s = mustApply(t, s, engine.Command{Type: engine.CmdJoinGame, PlayerID: "p2", Name: "Bob", Role: engine.RolePlayer})
	r := newTestRoom(t, s)

	out1 := make(chan Snapshot, 4)
	out2 := make(chan Snapshot, 4)
	for _, sub := range []Subscribe{
		{ClientID: "c1", PlayerID: "p1", Outbox: out1, Reply: make(chan error, 1)},
		{ClientID: "c2", PlayerID: "p2", Outbox: out2, Reply: make(chan error, 1)},
	} {
		r.Inbox() <- sub
		if err := <-sub.Reply; err != nil {
			t.Fatalf("subscribe %s: %v", sub.ClientID, err)
		}
	}
	_ = recvSnapshot(t, out1, 100*time.Millisecond)
	_ = recvSnapshot(t, out2, 100*time.Millisecond)

	// c1 drops; the bound player must vanish and c2 must hear about it.
	r.Inbox() <- Unsubscribe{ClientID: "c1", PlayerID: "p1"}

	snap := recvSnapshot(t, out2, 200*time.Millisecond)
	if _, lingers := snap.State.Players["p1"]; lingers {
		t.Fatalf("disconnected player still present in broadcast state")
	}

	viewReply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: viewReply}
	view := recvView(t, viewReply, 100*time.Millisecond)
	if view.NumClients != 1 {
		t.Fatalf("want 1 remaining client, got %d", view.NumClients)
	}
	if _, lingers := view.State.Players["p1"]; lingers {
		t.Fatalf("disconnected player still in authoritative state")
	}
}

func TestRoom_ShutdownClosesOutboxes(t *testing.T) {
	r := newTestRoom(t, stateWithPlayer(t, "p1", "Alice", engine.RolePlayer))

	out := make(chan Snapshot, 2)
	reply := make(chan error, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "p1", Outbox: out, Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	r.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox after shutdown")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("outbox not closed after shutdown")
	}
}

func TestRoom_DoAfterShutdownReturnsErrClosed(t *testing.T) {
	r := newTestRoom(t, stateWithPlayer(t, "p1", "Alice", engine.RolePlayer))

	r.Inbox() <- Shutdown{}
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatalf("room did not shut down")
	}

	// The loop is gone; the request must fail fast rather than sit in the
	// inbox forever.
	done := make(chan Result, 1)
	go func() {
		done <- r.Do(engine.Command{Type: engine.CmdToggleReady, PlayerID: "p1"})
	}()
	select {
	case res := <-done:
		if !errors.Is(res.Err, ErrClosed) {
			t.Fatalf("want ErrClosed, got %v", res.Err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Do blocked on a shut-down room")
	}
}

func TestRoom_CurrentViewAfterShutdownReturnsErrClosed(t *testing.T) {
	r := newTestRoom(t, stateWithPlayer(t, "p1", "Alice", engine.RolePlayer))

	r.Inbox() <- Shutdown{}
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatalf("room did not shut down")
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.CurrentView()
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("want ErrClosed, got %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("CurrentView blocked on a shut-down room")
	}
}

func TestRoom_AttachAfterShutdownReturnsErrClosed(t *testing.T) {
	r := newTestRoom(t, stateWithPlayer(t, "p1", "Alice", engine.RolePlayer))

	r.Inbox() <- Shutdown{}
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatalf("room did not shut down")
	}

	done := make(chan error, 1)
	go func() {
		done <- r.Attach("c1", "p1", make(chan Snapshot, 2))
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("want ErrClosed, got %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Attach blocked on a shut-down room")
	}
}

func TestRoom_NoOpCommandDoesNotBroadcast(t *testing.T) {
	s := stateWithPlayer(t, "p1", "Alice", engine.RolePlayer)
	s = mustApply(t, s, engine.Command{Type: engine.CmdCreateTeam, TeamID: "t1", TeamName: "Red"})
	s = mustApply(t, s, engine.Command{Type: engine.CmdAssignTeam, PlayerID: "p1", TeamID: "t1"})
	r := newTestRoom(t, s)

	out := make(chan Snapshot, 2)
	if err := r.Attach("c1", "p1", out); err != nil {
		t.Fatalf("attach: %v", err)
	}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	// Re-assigning to the current team is accepted but changes nothing;
	// subscribers must not get an identical snapshot for it.
	res := r.Do(engine.Command{Type: engine.CmdAssignTeam, PlayerID: "p1", TeamID: "t1"})
	if res.Err != nil {
		t.Fatalf("reassign: %v", res.Err)
	}
	if res.Version != 0 {
		t.Fatalf("no-op must not bump version, got %d", res.Version)
	}
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func mustApply(t *testing.T, s engine.State, cmd engine.Command) engine.State {
	t.Helper()
	_, ns, err := engine.Apply(s, cmd)
	if err != nil {
		t.Fatalf("apply %s: %v", cmd.Type, err)
	}
	return ns
}
