package structs

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// Permissions is an ordered list of permission strings with set semantics.
type Permissions []string

func (p Permissions) Has(perm string) bool {
	return slices.Contains(p, perm)
}

// Add appends perm unless already present, and reports whether it was added.
func (p *Permissions) Add(perm string) bool {
	if p.Has(perm) {
		return false
	}
	*p = append(*p, perm)
	return true
}

// Remove drops every occurrence of perm, and reports whether anything was removed.
func (p *Permissions) Remove(perm string) bool {
	before := len(*p)
	*p = slices.DeleteFunc(*p, func(s string) bool {
		return s == perm
	})
	return len(*p) != before
}

func (p Permissions) String() string {
	return strings.Join(p, ", ")
}

func (p Permissions) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Permissions) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*p = Permissions{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("can't scan %T into Permissions", src)
	}
	result := Permissions{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &result); err != nil {
			return err
		}
	}
	*p = result
	return nil
}
