package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/zond/wizmud"
	"github.com/zond/wizmud/storage"
)

const operatorName = "The operator"

// SessionInfo describes a live session to operator tools.
type SessionInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Port     int    `json:"port"`
	PlayerID int64  `json:"player_id"`
}

func (g *Game) Sessions() []SessionInfo {
	result := []SessionInfo{}
	for _, s := range g.registry.All() {
		result = append(result, SessionInfo{
			ID:       s.ID(),
			Name:     s.Name(),
			Port:     s.Port(),
			PlayerID: s.PlayerID(),
		})
	}
	return result
}

// Wall announces msg to every session on behalf of the operator.
func (g *Game) Wall(msg string) {
	g.registry.Announce(fmt.Sprintf("%s shouts \"%s\"", operatorName, msg))
}

// BootPlayer disconnects every session of the player named exactly name,
// and returns the number of sessions booted.
func (g *Game) BootPlayer(ctx context.Context, name string, reason string) (int, error) {
	players, err := g.storage.FindPlayers(ctx, name)
	if err != nil {
		return 0, wizmud.WithStack(err)
	}
	var sessions []Session
	for _, p := range players {
		if strings.EqualFold(p.Name, name) {
			sessions = g.registry.ByPlayer(p.Id)
			break
		}
	}
	feedback := fmt.Sprintf("You have been disconnected by %s.\n", strings.ToLower(operatorName))
	if reason != "" {
		feedback += fmt.Sprintf("\nReason given: %s", reason)
	}
	for _, sess := range sessions {
		sess.Send(feedback)
		if err := sess.Disconnect(); err != nil {
			g.log.Warnw("disconnecting booted session", "session", sess.ID(), "error", err)
		}
		g.storage.AuditLog(ctx, "BOOT", storage.AuditBoot{
			Caller: storage.SystemRef(),
			Booted: storage.Ref(sess.PlayerID(), sess.Name()),
			Port:   sess.Port(),
			Reason: reason,
		})
	}
	return len(sessions), nil
}
