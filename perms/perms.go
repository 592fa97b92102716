// Package perms answers whether an actor may perform a privileged action.
//
// A permission string is either a permission key itself (for example
// "can_boot" or "cmd:wall") or the key of a permission group, in which case
// every key in the group is granted. Superusers pass every check.
package perms

import (
	"github.com/zond/wizmud/structs"
)

// Holder is anything carrying a permission set and a superuser flag.
type Holder interface {
	IsSuperuser() bool
	PermissionSet() structs.Permissions
}

// Checker is an immutable snapshot of the permission groups, so a check never
// observes a half-applied group edit.
type Checker struct {
	groups map[string]structs.Permissions
}

func New(groups []*structs.PermissionGroup) *Checker {
	c := &Checker{
		groups: make(map[string]structs.Permissions, len(groups)),
	}
	for _, g := range groups {
		c.groups[g.Key] = append(structs.Permissions{}, g.Permissions...)
	}
	return c
}

// Grants reports whether set grants key, directly or through a group.
func (c *Checker) Grants(set structs.Permissions, key string) bool {
	for _, perm := range set {
		if perm == key {
			return true
		}
		if group, found := c.groups[perm]; found && group.Has(key) {
			return true
		}
	}
	return false
}

// AllowedString is the target-less check.
func (c *Checker) AllowedString(actor Holder, key string) bool {
	if actor == nil {
		return false
	}
	if actor.IsSuperuser() {
		return true
	}
	return c.Grants(actor.PermissionSet(), key)
}

// Allowed checks whether actor may perform key on target. Targets that are
// (or are owned by) superusers can only be acted upon by superusers.
func (c *Checker) Allowed(actor Holder, target Holder, key string) bool {
	if actor == nil {
		return false
	}
	if actor.IsSuperuser() {
		return true
	}
	if target != nil && target.IsSuperuser() {
		return false
	}
	return c.Grants(actor.PermissionSet(), key)
}

// Set is a Holder built from loose parts, for actors whose permissions come
// from both a player and the character it controls.
type Set struct {
	Superuser   bool
	Permissions structs.Permissions
}

func (s Set) IsSuperuser() bool {
	return s.Superuser
}

func (s Set) PermissionSet() structs.Permissions {
	return s.Permissions
}

// Combine merges the permission sets of holders, superuser if any holder is.
func Combine(holders ...Holder) Set {
	result := Set{Permissions: structs.Permissions{}}
	for _, h := range holders {
		if h == nil {
			continue
		}
		if h.IsSuperuser() {
			result.Superuser = true
		}
		for _, perm := range h.PermissionSet() {
			result.Permissions.Add(perm)
		}
	}
	return result
}
