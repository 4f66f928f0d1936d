package estimate

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/emirpasic/gods/v2/lists/arraylist"
	"github.com/emirpasic/gods/v2/queues/circularbuffer"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/mayo-ml/mayo/logutil"
)

var (
	ErrEmptyPath   = errors.New("estimate path is empty")
	ErrDuplicate   = errors.New("estimate already registered")
	ErrUnknownPath = errors.New("estimate not registered")
	ErrNoValues    = errors.New("estimate has no values")
)

// Estimator nimmt Registrierungen benannter Werte entgegen.
type Estimator interface {
	Register(value any, path string, history History) error
}

// Memory ist ein Estimator, der registrierte Werte und beobachtete Skalare
// im Speicher haelt.
type Memory struct {
	mu      sync.Mutex
	entries *orderedmap.OrderedMap[string, *entry]
}

type entry struct {
	value   any
	history History

	// genau eines von ring (begrenzt) oder list (unbegrenzt) ist gesetzt
	ring *circularbuffer.Queue[float64]
	list *arraylist.List[float64]
}

func (e *entry) add(v float64) {
	if e.ring != nil {
		e.ring.Enqueue(v)
		return
	}
	e.list.Add(v)
}

func (e *entry) values() []float64 {
	if e.ring != nil {
		return e.ring.Values()
	}
	return e.list.Values()
}

func NewMemory() *Memory {
	return &Memory{entries: orderedmap.New[string, *entry]()}
}

func (m *Memory) Register(value any, path string, history History) error {
	if path == "" {
		return ErrEmptyPath
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries.Get(path); ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, path)
	}

	e := &entry{value: value, history: history}
	if n, bounded := history.Size(); bounded {
		e.ring = circularbuffer.New[float64](n)
	} else {
		e.list = arraylist.New[float64]()
	}

	m.entries.Set(path, e)
	logutil.Trace("registered estimate", "path", path, "history", history)
	return nil
}

// Add haengt eine Beobachtung an; begrenzte Historien verwerfen den
// aeltesten Wert.
func (m *Memory) Add(path string, v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries.Get(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}

	e.add(v)
	return nil
}

// Value liefert den registrierten Wert zu path.
func (m *Memory) Value(path string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries.Get(path)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// History liefert die registrierte Historie zu path.
func (m *Memory) History(path string) (History, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries.Get(path)
	if !ok {
		return History{}, false
	}
	return e.history, true
}

// Values liefert die gehaltenen Beobachtungen, aelteste zuerst.
func (m *Memory) Values(path string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries.Get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	return e.values(), nil
}

// Paths liefert alle Pfade in Registrierungsreihenfolge.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		paths = append(paths, pair.Key)
	}
	return paths
}

// Stat fasst die Beobachtungen eines Estimates zusammen.
type Stat struct {
	Path    string
	History History
	Count   int
	Mean    float64
	Std     float64
}

func (m *Memory) Stat(path string) (Stat, error) {
	values, err := m.Values(path)
	if err != nil {
		return Stat{}, err
	}
	if len(values) == 0 {
		return Stat{}, fmt.Errorf("%w: %s", ErrNoValues, path)
	}

	h, _ := m.History(path)
	s := Stat{Path: path, History: h, Count: len(values), Mean: stat.Mean(values, nil)}
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	}
	return s, nil
}

// Summary liefert Statistiken fuer alle Estimates mit Beobachtungen in
// Registrierungsreihenfolge.
func (m *Memory) Summary() []Stat {
	var stats []Stat
	for _, path := range m.Paths() {
		s, err := m.Stat(path)
		if errors.Is(err, ErrNoValues) {
			continue
		} else if err != nil {
			slog.Warn("skipping estimate", "path", path, "error", err)
			continue
		}
		stats = append(stats, s)
	}
	return stats
}
