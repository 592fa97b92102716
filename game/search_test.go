package game

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/zond/wizmud/structs"
)

func TestSearch(t *testing.T) {
	tg := newTestGame(t)
	root := tg.account("root").connect()
	tg.account("bob")
	caller := root.caller()
	limbo := caller.Character.Location
	elsewhere := tg.object("Elsewhere", structs.KindRoom, 0)
	apple := tg.object("apple", structs.KindThing, limbo)
	tg.object("apricot", structs.KindThing, limbo)
	tg.object("anvil", structs.KindThing, elsewhere.Id)

	for _, tc := range []struct {
		query  string
		scope  Scope
		status MatchStatus
		want   []string
	}{
		{"me", Local, Unique, []string{"root"}},
		{"here", Local, Unique, []string{"Limbo"}},
		{"*bob", Local, Unique, []string{"bob"}},
		{"*BO", Global, Unique, []string{"bob"}},
		{"*nobody", Global, NotFound, nil},
		{fmt.Sprintf("#%d", apple.Id), Local, Unique, []string{"apple"}},
		{"#999999", Global, NotFound, nil},
		{"#abc", Global, NotFound, nil},
		{"ap", Local, Ambiguous, []string{"apple", "apricot"}},
		{"APPLE", Local, Unique, []string{"apple"}},
		{"anvil", Local, NotFound, nil},
		{"anvil", Global, Unique, []string{"anvil"}},
		{"", Global, NotFound, nil},
	} {
		t.Run(tc.query, func(t *testing.T) {
			m, err := tg.Search(tg.ctx, caller, tc.query, tc.scope)
			if err != nil {
				t.Fatal(err)
			}
			if m.Status != tc.status {
				t.Errorf("Search(%q) status = %v, want %v", tc.query, m.Status, tc.status)
			}
			names := []string{}
			for _, c := range m.Candidates {
				names = append(names, c.Name())
			}
			if diff := cmp.Diff(tc.want, names, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tc.query, diff)
			}
		})
	}
}

func TestSearchWithoutCharacter(t *testing.T) {
	tg := newTestGame(t)
	root := tg.account("root").connect()
	caller := root.caller()
	caller.Character = nil

	m, err := tg.Search(tg.ctx, caller, "me", Local)
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != Unique || !m.One().IsPlayer() {
		t.Fatalf("Search(me) = %+v, want the player", m)
	}

	m, err = tg.Search(tg.ctx, caller, "here", Local)
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != NotFound {
		t.Errorf("Search(here) status = %v, want NotFound", m.Status)
	}
}

func TestReportMatch(t *testing.T) {
	tg := newTestGame(t)
	root := tg.account("root").connect()
	limbo := root.caller().Character.Location
	apple := tg.object("apple", structs.KindThing, limbo)
	apricot := tg.object("apricot", structs.KindThing, limbo)

	root.expect("@perm ap", fmt.Sprintf("There were multiple matches:\n #%d apple\n #%d apricot", apple.Id, apricot.Id))
	root.expect("@perm zebra", "Could not find 'zebra'.")
}

func TestTargetDescribe(t *testing.T) {
	for _, tc := range []struct {
		target     *Target
		describe   string
		controller int64
	}{
		{&Target{Player: &structs.Player{Id: 3, Name: "bob"}}, "*bob (player #3)", 3},
		{&Target{Object: &structs.Object{Id: 7, Key: "rock", Player: 2}}, "#7 rock", 2},
	} {
		if got := tc.target.Describe(); got != tc.describe {
			t.Errorf("Describe() = %q, want %q", got, tc.describe)
		}
		if got := tc.target.ControllingPlayer(); got != tc.controller {
			t.Errorf("ControllingPlayer() = %d, want %d", got, tc.controller)
		}
	}
}
