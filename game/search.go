package game

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/structs"
)

type MatchStatus int

const (
	NotFound MatchStatus = iota
	Unique
	Ambiguous
)

// Match is the result of resolving a query into zero, one or many candidates.
type Match[T any] struct {
	Query      string
	Status     MatchStatus
	Candidates []T
}

func newMatch[T any](query string, candidates []T) Match[T] {
	m := Match[T]{Query: query, Candidates: candidates}
	switch len(candidates) {
	case 0:
		m.Status = NotFound
	case 1:
		m.Status = Unique
	default:
		m.Status = Ambiguous
	}
	return m
}

// One returns the single candidate of a Unique match.
func (m Match[T]) One() T {
	var zero T
	if m.Status != Unique {
		return zero
	}
	return m.Candidates[0]
}

type Scope int

const (
	// Local searches the caller's location, its contents, and the caller's inventory.
	Local Scope = iota
	Global
)

// Target is what a query resolves to: either an in-world object or, for
// queries starting with '*', a player account.
type Target struct {
	Object *structs.Object
	Player *structs.Player
}

func (t *Target) IsPlayer() bool {
	return t.Player != nil
}

func (t *Target) Name() string {
	if t.Player != nil {
		return t.Player.Name
	}
	return t.Object.Key
}

func (t *Target) Describe() string {
	if t.Player != nil {
		return fmt.Sprintf("%s (player #%d)", t.Player.Ref(), t.Player.Id)
	}
	return fmt.Sprintf("%s %s", t.Object.Ref(), t.Object.Key)
}

// ControllingPlayer is the id of the player receiving messages sent to the target.
func (t *Target) ControllingPlayer() int64 {
	if t.Player != nil {
		return t.Player.Id
	}
	return t.Object.Player
}

// matchNames returns the candidates whose name equals query ignoring case,
// or if there are none, those whose name starts with it.
func matchNames[T any](query string, candidates []T, name func(T) string) []T {
	exact := []T{}
	prefix := []T{}
	lowerQuery := strings.ToLower(query)
	for _, c := range candidates {
		n := strings.ToLower(name(c))
		if n == lowerQuery {
			exact = append(exact, c)
		} else if strings.HasPrefix(n, lowerQuery) {
			prefix = append(prefix, c)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return prefix
}

// SearchPlayers resolves a player name, with or without the '*' prefix.
// "me" and "self" resolve to the caller's player.
func (g *Game) SearchPlayers(ctx context.Context, caller *Caller, query string) (Match[*structs.Player], error) {
	query = strings.TrimSpace(query)
	name := strings.TrimPrefix(query, "*")
	if caller != nil && caller.Player != nil && (strings.EqualFold(name, "me") || strings.EqualFold(name, "self")) {
		return newMatch(query, []*structs.Player{caller.Player}), nil
	}
	players, err := g.storage.FindPlayers(ctx, name)
	if err != nil {
		return Match[*structs.Player]{}, err
	}
	return newMatch(query, players), nil
}

// Search resolves query relative to caller.
//
// Supported forms are "*name" for players, "#id" for objects by id, "me" or
// "self" for the caller, "here" for the caller's location, and otherwise an
// object name matched exactly or by prefix, ignoring case.
func (g *Game) Search(ctx context.Context, caller *Caller, query string, scope Scope) (Match[*Target], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return newMatch[*Target](query, nil), nil
	}
	if strings.HasPrefix(query, "*") {
		players, err := g.SearchPlayers(ctx, caller, query)
		if err != nil {
			return Match[*Target]{}, err
		}
		targets := make([]*Target, len(players.Candidates))
		for i, p := range players.Candidates {
			targets[i] = &Target{Player: p}
		}
		return newMatch(query, targets), nil
	}
	object := func(o *structs.Object) Match[*Target] {
		if o == nil {
			return newMatch[*Target](query, nil)
		}
		return newMatch(query, []*Target{{Object: o}})
	}
	switch strings.ToLower(query) {
	case "me", "self":
		if caller.Character == nil {
			return newMatch(query, []*Target{{Player: caller.Player}}), nil
		}
		return object(caller.Character), nil
	case "here":
		loc, err := caller.location(ctx, g)
		if err != nil {
			return Match[*Target]{}, err
		}
		return object(loc), nil
	}
	if strings.HasPrefix(query, "#") {
		id, err := strconv.ParseInt(query[1:], 10, 64)
		if err != nil {
			return newMatch[*Target](query, nil), nil
		}
		o, err := g.storage.LoadObject(ctx, id)
		if errors.Is(err, os.ErrNotExist) {
			return newMatch[*Target](query, nil), nil
		} else if err != nil {
			return Match[*Target]{}, err
		}
		return object(o), nil
	}

	var objects []*structs.Object
	if scope == Global {
		found, err := g.storage.FindObjects(ctx, query)
		if err != nil {
			return Match[*Target]{}, err
		}
		objects = found
	} else {
		candidates, err := g.localObjects(ctx, caller)
		if err != nil {
			return Match[*Target]{}, err
		}
		objects = matchNames(query, candidates, (*structs.Object).Name)
	}
	targets := make([]*Target, len(objects))
	for i, o := range objects {
		targets[i] = &Target{Object: o}
	}
	return newMatch(query, targets), nil
}

func (g *Game) localObjects(ctx context.Context, caller *Caller) ([]*structs.Object, error) {
	if caller.Character == nil {
		return nil, nil
	}
	result := []*structs.Object{}
	loc, err := caller.location(ctx, g)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		result = append(result, loc)
		contents, err := g.storage.Contents(ctx, loc.Id)
		if err != nil {
			return nil, err
		}
		result = append(result, contents...)
	}
	inventory, err := g.storage.Contents(ctx, caller.Character.Id)
	if err != nil {
		return nil, err
	}
	return append(result, inventory...), nil
}

// reportMatch tells the caller why m isn't a unique match, and returns the
// unique target if it is.
func (i *invocation) reportMatch(m Match[*Target]) (*Target, bool) {
	switch m.Status {
	case Unique:
		return m.One(), true
	case Ambiguous:
		lines := []string{"There were multiple matches:"}
		for _, t := range m.Candidates {
			lines = append(lines, " "+t.Describe())
		}
		i.msg(strings.Join(lines, "\n"))
	default:
		i.msg(fmt.Sprintf("Could not find '%s'.", m.Query))
	}
	return nil, false
}

// search resolves query and reports failures to the caller.
func (i *invocation) search(query string, scope Scope) (*Target, bool, error) {
	m, err := i.game.Search(i.ctx, i.caller, query, scope)
	if err != nil {
		return nil, false, wizmud.WithStack(err)
	}
	t, ok := i.reportMatch(m)
	return t, ok, nil
}
