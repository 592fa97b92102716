package game

import (
	"github.com/zond/wizmud"
)

// Session is a live connection associated with at most one player.
type Session interface {
	ID() string
	// Port is the remote port of the connection.
	Port() int
	// Name is the user name the session logged in as.
	Name() string
	// PlayerID is 0 until the session has logged in.
	PlayerID() int64
	Send(msg string)
	Disconnect() error
}

// Registry tracks the live sessions of one game.
type Registry struct {
	sessions *wizmud.SyncMap[string, Session]
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: wizmud.NewSyncMap[string, Session](),
	}
}

func (r *Registry) Register(s Session) {
	r.sessions.Set(s.ID(), s)
}

func (r *Registry) Unregister(s Session) {
	r.sessions.Del(s.ID())
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}

// All returns every session ordered by id.
func (r *Registry) All() []Session {
	return r.sessions.SortedValues(func(a, b string) bool {
		return a < b
	})
}

func (r *Registry) filter(f func(Session) bool) []Session {
	result := []Session{}
	for _, s := range r.All() {
		if f(s) {
			result = append(result, s)
		}
	}
	return result
}

func (r *Registry) ByPort(port int) []Session {
	return r.filter(func(s Session) bool {
		return s.Port() == port
	})
}

// ByPlayer returns the logged in sessions of the player.
func (r *Registry) ByPlayer(playerID int64) []Session {
	if playerID == 0 {
		return nil
	}
	return r.filter(func(s Session) bool {
		return s.PlayerID() == playerID
	})
}

// Connected reports whether the player has any live session.
func (r *Registry) Connected(playerID int64) bool {
	return len(r.ByPlayer(playerID)) > 0
}

// Announce sends msg to every session.
func (r *Registry) Announce(msg string) {
	for s := range r.sessions.Values() {
		s.Send(msg)
	}
}

// SendPlayer sends msg to every session of the player.
func (r *Registry) SendPlayer(playerID int64, msg string) {
	for _, s := range r.ByPlayer(playerID) {
		s.Send(msg)
	}
}
