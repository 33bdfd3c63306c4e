// Package room runs one goroutine per game room that owns the room's
// authoritative engine.State. Every mutation, from REST or from a socket,
// passes through the room's inbox, so mutations are serialized and
// snapshots reach all subscribers in the order the mutations were
// accepted.
package room

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
)

// ErrClosed answers requests that race a room reset or hub teardown. The
// room is gone; callers treat it like a room that no longer exists.
var ErrClosed = errors.New("room closed")

type Msg interface{ isRoomMsg() }

// Execute applies a command and replies with the outcome. REST handlers
// use this to translate engine errors into status codes.
type Execute struct {
	Cmd   engine.Command
	Reply chan Result
}

func (Execute) isRoomMsg() {}

type Result struct {
	Version int
	State   engine.State
	Events  []engine.Event
	Err     error
}

// Subscribe binds a client outbox to the room's broadcast channel.
// PlayerID must name a player already in the room.
type Subscribe struct {
	ClientID string
	PlayerID string
	Outbox   chan Snapshot
	Reply    chan error
}

func (Subscribe) isRoomMsg() {}

// Unsubscribe drops a subscription. When PlayerID is set the player is
// also removed from the game, so a dropped connection never leaves a
// stale entry in team membership or readiness counts.
type Unsubscribe struct {
	ClientID string
	PlayerID string
}

func (Unsubscribe) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Room struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func NewRoom(parent context.Context, code string, initial engine.State, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		code:    code,
		inbox:   make(chan Msg, 64),
		state:   initial,
		version: 0,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With(zap.String("room", code)),
	}

	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

// Inbox exposes the message channel to the ws/http layers and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room's loop has stopped servicing the inbox.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Do sends a command for execution and waits for the outcome. If the room
// shuts down before it can service the request (reset, hub teardown) the
// call returns ErrClosed instead of blocking on a dead inbox.
func (r *Room) Do(cmd engine.Command) Result {
	reply := make(chan Result, 1)
	select {
	case r.inbox <- Execute{Cmd: cmd, Reply: reply}:
	case <-r.ctx.Done():
		return Result{Err: ErrClosed}
	}
	select {
	case res := <-reply:
		return res
	case <-r.ctx.Done():
		// The loop may have replied in the same instant it stopped.
		select {
		case res := <-reply:
			return res
		default:
			return Result{Err: ErrClosed}
		}
	}
}

// CurrentView reads the room's state without mutating it. Returns ErrClosed
// once the room has shut down.
func (r *Room) CurrentView() (View, error) {
	reply := make(chan View, 1)
	select {
	case r.inbox <- GetState{Reply: reply}:
	case <-r.ctx.Done():
		return View{}, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.ctx.Done():
		select {
		case v := <-reply:
			return v, nil
		default:
			return View{}, ErrClosed
		}
	}
}

// Attach subscribes a client outbox, waiting for the room's verdict. The
// outbox must be buffered; the room closes it on unsubscribe or shutdown.
func (r *Room) Attach(clientID, playerID string, outbox chan Snapshot) error {
	reply := make(chan error, 1)
	select {
	case r.inbox <- Subscribe{ClientID: clientID, PlayerID: playerID, Outbox: outbox, Reply: reply}:
	case <-r.ctx.Done():
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.ctx.Done():
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// Detach drops a subscription without waiting. A no-op on a closed room:
// shutdown already closed every outbox and removed every player binding.
func (r *Room) Detach(clientID, playerID string) {
	select {
	case r.inbox <- Unsubscribe{ClientID: clientID, PlayerID: playerID}:
	case <-r.ctx.Done():
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Subscribe:
				if _, ok := r.state.Players[msg.PlayerID]; !ok {
					msg.Reply <- engine.ErrNotFound
					break
				}
				r.clients[msg.ClientID] = msg.Outbox
				msg.Reply <- nil
				// New subscriber gets the current snapshot immediately.
				msg.Outbox <- Snapshot{Version: r.version, State: r.state}

			case Unsubscribe:
				if ch, ok := r.clients[msg.ClientID]; ok {
					delete(r.clients, msg.ClientID)
					close(ch)
				}
				if msg.PlayerID != "" {
					r.apply(engine.Command{Type: engine.CmdLeaveGame, PlayerID: msg.PlayerID})
				}

			case Execute:
				events, err := r.apply(msg.Cmd)
				msg.Reply <- Result{Version: r.version, State: r.state, Events: events, Err: err}

			case GetState:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					State:      r.state,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// apply runs a command through the engine; an accepted mutation bumps the
// version and broadcasts exactly one snapshot.
func (r *Room) apply(cmd engine.Command) ([]engine.Event, error) {
	events, newState, err := engine.Apply(r.state, cmd)
	if err != nil {
		r.log.Debug("command rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.Error(err))
		return nil, err
	}
	if len(events) == 0 {
		// Accepted but changed nothing (e.g. re-joining the team the
		// player is already on). No new version, nothing to broadcast.
		return events, nil
	}
	r.state = newState
	r.version++
	if engine.ContainsEvent(events, engine.EvtPhaseChanged) {
		r.log.Info("phase changed",
			zap.String("phase", string(r.state.Phase)),
			zap.Int("version", r.version))
	}
	r.broadcast(Snapshot{Version: r.version, State: r.state})
	return events, nil
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch) // Tell client no more snapshots
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) broadcast(snap Snapshot) {
	for id, ch := range r.clients {
		select {
		case ch <- snap:
			// ok
		default:
			// Client is slow/full - drop them.
			r.log.Warn("dropping slow client", zap.String("client", id))
			close(ch)
			delete(r.clients, id)
		}
	}
}
