// scope.go
// Dieses Modul enthaelt den Scope-Guard fuer die Geraete-Bindung einer
// Replika. Bind aktiviert Geraet und eindeutigen Namens-Scope, Close stellt
// den vorherigen Zustand wieder her.

package ml

import (
	"fmt"
	"strconv"
	"sync"
)

// Binder bindet nachfolgende Operationen an ein Geraet.
type Binder interface {
	Bind(device int) (*Scope, error)
}

// Placement beschreibt die aktive Platzierung: Geraet und voll
// qualifizierter Scope-Name.
type Placement struct {
	Index  int
	Device string
	Scope  string
}

// Scope ist der Guard einer Bindung. Close ist idempotent und muss auf allen
// Pfaden aufgerufen werden, typischerweise per defer.
type Scope struct {
	Placement

	once    sync.Once
	release func()
}

// Close gibt die Bindung frei und stellt die vorherige Platzierung wieder her.
func (s *Scope) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Stack ist der Standard-Binder. Er fuehrt einen Stapel aktiver
// Platzierungen und vergibt Scope-Namen eindeutig: tower_0, tower_0_1, ...
type Stack struct {
	mu     sync.Mutex
	active []Placement
	used   map[string]int
}

func NewStack() *Stack {
	return &Stack{used: make(map[string]int)}
}

func (s *Stack) Bind(device int) (*Scope, error) {
	if device < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDevice, device)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := TowerName(device)
	if n := len(s.active); n > 0 {
		name = s.active[n-1].Scope + "/" + name
	}

	p := Placement{Index: device, Device: DeviceName(device), Scope: s.unique(name)}
	s.active = append(s.active, p)
	depth := len(s.active)

	return &Scope{Placement: p, release: func() { s.restore(depth - 1) }}, nil
}

// Current liefert die innerste aktive Platzierung.
func (s *Stack) Current() (Placement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.active) == 0 {
		return Placement{}, false
	}
	return s.active[len(s.active)-1], true
}

// Depth liefert die Anzahl aktiver Bindungen.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// restore kuerzt den Stapel auf depth; innere, nicht geschlossene Scopes
// werden dabei mit freigegeben.
func (s *Stack) restore(depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if depth < len(s.active) {
		s.active = s.active[:depth]
	}
}

func (s *Stack) unique(name string) string {
	n := s.used[name]
	s.used[name] = n + 1
	if n == 0 {
		return name
	}

	// ein bereits vergebener Kandidat wie tower_0_1 wird uebersprungen
	for {
		candidate := name + "_" + strconv.Itoa(n)
		if s.used[candidate] == 0 {
			s.used[candidate] = 1
			return candidate
		}
		n++
	}
}
