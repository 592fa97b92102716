package storage

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/zond/wizmud/structs"
)

type auditEntry struct {
	Time      string          `json:"time"`
	SessionID string          `json:"session_id,omitempty"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

func readAuditLog(t *testing.T, dir string) []auditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "audit.log"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("Failed to open audit log: %v", err)
	}
	defer f.Close()

	var entries []auditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		var entry auditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Failed to parse audit log line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	return entries
}

func TestAuditLog(t *testing.T) {
	s, dir := testStorage(t)
	ctx := SetSessionID(context.Background(), "session-1")

	if _, err := s.CreateAccount(ctx, &structs.User{Name: "alice", PasswordHash: "x"}); err != nil {
		t.Fatal(err)
	}
	s.AuditLog(ctx, "PERM_GRANT", AuditPermChange{
		Caller:     SystemRef(),
		Target:     Ref(1, "alice"),
		Permission: "fly",
	})

	entries := readAuditLog(t, dir)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Event != "USER_CREATE" || entries[1].Event != "PERM_GRANT" {
		t.Errorf("unexpected events %q, %q", entries[0].Event, entries[1].Event)
	}
	for _, e := range entries {
		if e.SessionID != "session-1" {
			t.Errorf("entry %q has session %q", e.Event, e.SessionID)
		}
	}
	change := AuditPermChange{}
	if err := json.Unmarshal(entries[1].Data, &change); err != nil {
		t.Fatal(err)
	}
	if change.Permission != "fly" || change.Target.Name != "alice" || change.Caller.ID != nil {
		t.Errorf("unexpected data %+v", change)
	}
}
