package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/natefinch/lumberjack.v2"
)

type sessionIDKey struct{}

// SetSessionID returns a context carrying the id of the session acting.
func SetSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok
}

// AuditLogger writes security-relevant events to a rotated log file as JSON lines.
type AuditLogger struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	enc *json.Encoder
}

// AuditRef identifies a user, player or object by both ID and name.
// ID is a pointer to distinguish between "ID is 0" and "no ID" (nil for system).
type AuditRef struct {
	ID   *int64 `json:"id,omitempty"`
	Name string `json:"name"`
}

func Ref(id int64, name string) AuditRef {
	return AuditRef{ID: &id, Name: name}
}

// SystemRef is the caller for actions by the operator tools.
func SystemRef() AuditRef {
	return AuditRef{Name: "system"}
}

// AuditData is the interface for typed audit event data.
type AuditData interface {
	auditData()
}

type AuditEntry struct {
	Time      string    `json:"time"`
	SessionID string    `json:"session_id,omitempty"`
	Event     string    `json:"event"`
	Data      AuditData `json:"data"`
}

type AuditUserCreate struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote,omitempty"`
}

func (AuditUserCreate) auditData() {}

type AuditUserLogin struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote"`
}

func (AuditUserLogin) auditData() {}

type AuditLoginFailed struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote"`
}

func (AuditLoginFailed) auditData() {}

type AuditSessionEnd struct {
	User AuditRef `json:"user"`
}

func (AuditSessionEnd) auditData() {}

type AuditBoot struct {
	Caller AuditRef `json:"caller"`
	Booted AuditRef `json:"booted"`
	Port   int      `json:"port"`
	Reason string   `json:"reason,omitempty"`
}

func (AuditBoot) auditData() {}

type AuditDeletePlayer struct {
	Caller          AuditRef  `json:"caller"`
	User            AuditRef  `json:"user"`
	Player          *AuditRef `json:"player,omitempty"`
	DeleteCharacter bool      `json:"delete_character"`
	Reason          string    `json:"reason,omitempty"`
}

func (AuditDeletePlayer) auditData() {}

type AuditPasswordChange struct {
	Caller AuditRef `json:"caller"`
	User   AuditRef `json:"user"`
}

func (AuditPasswordChange) auditData() {}

// AuditPermChange is logged for both PERM_GRANT and PERM_REVOKE.
type AuditPermChange struct {
	Caller     AuditRef `json:"caller"`
	Target     AuditRef `json:"target"`
	Permission string   `json:"permission"`
}

func (AuditPermChange) auditData() {}

type AuditPuppet struct {
	Caller AuditRef `json:"caller"`
	From   AuditRef `json:"from"`
	To     AuditRef `json:"to"`
}

func (AuditPuppet) auditData() {}

// AuditConfigChange is logged when aliases or config values change.
type AuditConfigChange struct {
	Caller AuditRef `json:"caller"`
	Table  string   `json:"table"`
	Key    string   `json:"key"`
	Value  string   `json:"value,omitempty"`
}

func (AuditConfigChange) auditData() {}

// NewAuditLogger creates a new audit logger writing to the specified file.
func NewAuditLogger(path string) *AuditLogger {
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 10,
		MaxAge:     365,
	}
	return &AuditLogger{
		out: out,
		enc: json.NewEncoder(out),
	}
}

// Log writes a structured audit entry as JSON.
// Panics if encoding fails (indicates a bug in the typed AuditData structs).
func (a *AuditLogger) Log(ctx context.Context, event string, data AuditData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sessionID, _ := SessionID(ctx)
	if err := a.enc.Encode(AuditEntry{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	}); err != nil {
		panic(fmt.Sprintf("audit log encode failed: %v", err))
	}
}

func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.out.Close()
}
