package wizmud

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"iter"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	DigestAuthRealm = "wizmud"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(stackTracer); !ok {
		return errors.WithStack(err)
	}
	return err
}

func StackTrace(err error) string {
	buf := &bytes.Buffer{}
	if err, ok := err.(stackTracer); ok {
		for _, f := range err.StackTrace() {
			fmt.Fprintf(buf, "%+v\n", f)
		}
	}
	return buf.String()
}

var (
	namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,15}$`)
)

// ValidateName checks that name is 1-16 characters, starts with a letter,
// and contains only letters, digits, hyphens and underscores.
func ValidateName(name string, what string) error {
	if !namePattern.MatchString(name) {
		return errors.Errorf("%s must be 1-16 characters, start with a letter, and contain only letters, digits, '-' and '_'", what)
	}
	return nil
}

type SyncMap[K comparable, V any] struct {
	m     map[K]V
	mutex sync.RWMutex
}

func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{
		m: map[K]V{},
	}
}

func (s *SyncMap[K, V]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.m)
}

// Values iterates over a snapshot, so the callback may modify the map.
func (s *SyncMap[K, V]) Values() iter.Seq[V] {
	s.mutex.RLock()
	snapshot := make([]V, 0, len(s.m))
	for _, v := range s.m {
		snapshot = append(snapshot, v)
	}
	s.mutex.RUnlock()
	return func(yield func(v V) bool) {
		for _, v := range snapshot {
			if !yield(v) {
				return
			}
		}
	}
}

// SortedValues returns a snapshot of the values ordered by key.
func (s *SyncMap[K, V]) SortedValues(less func(a, b K) bool) []V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	keys := make([]K, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return less(keys[i], keys[j])
	})
	result := make([]V, len(keys))
	for i, k := range keys {
		result[i] = s.m[k]
	}
	return result
}

func (s *SyncMap[K, V]) GetHas(key K) (V, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	v, found := s.m[key]
	return v, found
}

func (s *SyncMap[K, V]) Get(key K) V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.m[key]
}

func (s *SyncMap[K, V]) Set(key K, value V) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.m[key] = value
}

func (s *SyncMap[K, V]) Del(key K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.m, key)
}

func (s *SyncMap[K, V]) Has(key K) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, found := s.m[key]
	return found
}

func Increment(prevPointer *uint64) uint64 {
	next := uint64(0)
	for {
		next = uint64(time.Now().UnixNano())
		previous := atomic.LoadUint64(prevPointer)
		if next > previous && atomic.CompareAndSwapUint64(prevPointer, previous, next) {
			break
		}
	}
	return next
}

var (
	lastUniqueID uint64
	idEncoding   = base64.RawURLEncoding
)

// NextUniqueID returns a process-unique identifier.
func NextUniqueID() string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, Increment(&lastUniqueID))
	return idEncoding.EncodeToString(b)
}
