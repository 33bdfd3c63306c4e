package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
	"github.com/DoyleJ11/party-lobby-backend/internal/room"
)

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	reply := make(chan *room.Room, 1)

	state := engine.NewEmptyState()
	h.Inbox() <- CreateRoom{Code: "ZED123", State: state, Reply: reply}
	r1 := <-reply

	h.Inbox() <- GetRoom{Code: "ZED123", Reply: reply}
	r2 := <-reply

	if r1 == nil || r2 == nil || r1 != r2 {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_GetUnknownRoomIsNil(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	reply := make(chan *room.Room, 1)

	h.Inbox() <- GetRoom{Code: "NOPE", Reply: reply}
	if r := <-reply; r != nil {
		t.Fatalf("expected nil for unknown code, got %v", r)
	}
}

func TestHub_ResetRoomWipesState(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	reply := make(chan *room.Room, 1)

	seed := engine.NewEmptyState()
	_, seed, err := engine.Apply(seed, engine.Command{
		Type: engine.CmdJoinGame, PlayerID: "p1", Name: "Alice", Role: engine.RolePlayer,
	})
	if err != nil {
		t.Fatalf("seed join: %v", err)
	}

	h.Inbox() <- CreateRoom{Code: "ROOM01", State: seed, Reply: reply}
	old := <-reply

	h.Inbox() <- ResetRoom{Code: "ROOM01", State: engine.NewEmptyState(), Reply: reply}
	fresh := <-reply

	if fresh == nil || fresh == old {
		t.Fatalf("reset must produce a new room instance")
	}

	viewReply := make(chan room.View, 1)
	fresh.Inbox() <- room.GetState{Reply: viewReply}
	select {
	case view := <-viewReply:
		if view.Version != 0 || len(view.State.Players) != 0 || view.State.Phase != engine.PhaseLobby {
			t.Fatalf("reset room not empty: %+v", view)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out reading reset room state")
	}
}

func TestHub_StaleRoomPointerAfterResetAnswersClosed(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	reply := make(chan *room.Room, 1)

	seed := engine.NewEmptyState()
	_, seed, err := engine.Apply(seed, engine.Command{
		Type: engine.CmdJoinGame, PlayerID: "p1", Name: "Alice", Role: engine.RolePlayer,
	})
	if err != nil {
		t.Fatalf("seed join: %v", err)
	}

	h.Inbox() <- CreateRoom{Code: "ROOM02", State: seed, Reply: reply}
	old := <-reply

	h.Inbox() <- ResetRoom{Code: "ROOM02", State: engine.NewEmptyState(), Reply: reply}
	<-reply

	// A handler that resolved the room just before the reset must get a
	// prompt room-closed answer, never a silent hang.
	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatalf("old room still running after reset")
	}

	done := make(chan room.Result, 1)
	go func() {
		done <- old.Do(engine.Command{Type: engine.CmdToggleReady, PlayerID: "p1"})
	}()
	select {
	case res := <-done:
		if !errors.Is(res.Err, room.ErrClosed) {
			t.Fatalf("want room.ErrClosed, got %v", res.Err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Do blocked on the replaced room")
	}
}
