package structs

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindRoom      Kind = "room"
	KindCharacter Kind = "character"
	KindThing     Kind = "thing"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRoom, KindCharacter, KindThing:
		return true
	}
	return false
}

// Object is an addressable in-world entity.
// Location is 0 for objects outside any container, which is what rooms are.
// Player is the id of the player currently puppeting the object, 0 if none.
type Object struct {
	Id          int64       `db:"id" json:"id"`
	Key         string      `db:"name" json:"key"`
	Kind        Kind        `db:"kind" json:"kind"`
	Location    int64       `db:"location_id" json:"location"`
	Player      int64       `db:"player_id" json:"player"`
	Permissions Permissions `db:"permissions" json:"permissions"`
}

func (o *Object) Name() string {
	return o.Key
}

func (o *Object) Ref() string {
	return fmt.Sprintf("#%d", o.Id)
}

func (o *Object) IsRoom() bool {
	return o.Location == 0
}

func (o *Object) IsCharacter() bool {
	return o.Kind == KindCharacter
}

// Player is the persistent account record, distinct from the character it controls.
type Player struct {
	Id          int64       `db:"id" json:"id"`
	User        int64       `db:"user_id" json:"user"`
	Name        string      `db:"name" json:"name"`
	Character   int64       `db:"character_id" json:"character"`
	Superuser   bool        `db:"superuser" json:"superuser"`
	Permissions Permissions `db:"permissions" json:"permissions"`
}

func (p *Player) Ref() string {
	return fmt.Sprintf("*%s", p.Name)
}

func (p *Player) IsSuperuser() bool {
	return p.Superuser
}

func (p *Player) PermissionSet() Permissions {
	return p.Permissions
}

// User holds login credentials. PasswordHash is an argon2id PHC string and
// DigestHA1 the precomputed HTTP digest hash for the web admin realm.
type User struct {
	Id           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	PasswordHash string `db:"password_hash" json:"-"`
	DigestHA1    string `db:"digest_ha1" json:"-"`
	CreatedAt    int64  `db:"created_at" json:"created_at"`
	LastLoginAt  int64  `db:"last_login" json:"last_login"`
}

func (u *User) LastLogin() time.Time {
	if u.LastLoginAt == 0 {
		return time.Time{}
	}
	return time.Unix(0, u.LastLoginAt).UTC()
}

func (u *User) SetLastLogin(t time.Time) {
	u.LastLoginAt = t.UnixNano()
}

func (u *User) Created() time.Time {
	return time.Unix(0, u.CreatedAt).UTC()
}
