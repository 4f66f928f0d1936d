package estimate

import (
	"fmt"
	"strconv"

	"github.com/mayo-ml/mayo/envconfig"
)

// History bestimmt, wie viele Werte ein Estimate behaelt.
type History struct {
	window   int
	infinite bool
}

var (
	// DefaultHistory nutzt das Fenster aus MAYO_HISTORY.
	DefaultHistory = History{}

	// Infinite behaelt alle Werte, etwa waehrend einer Validierung.
	Infinite = History{infinite: true}
)

// Window liefert eine Historie mit festem Fenster n > 0.
func Window(n int) History {
	if n <= 0 {
		return DefaultHistory
	}
	return History{window: n}
}

// Size liefert die aufgeloeste Fenstergroesse; bounded ist false fuer Infinite.
func (h History) Size() (n int, bounded bool) {
	switch {
	case h.infinite:
		return 0, false
	case h.window > 0:
		return h.window, true
	default:
		return max(int(envconfig.HistoryWindow()), 1), true
	}
}

func (h History) IsInfinite() bool {
	return h.infinite
}

func (h History) String() string {
	switch {
	case h.infinite:
		return "infinite"
	case h.window > 0:
		return strconv.Itoa(h.window)
	default:
		return "default"
	}
}

// Registration ist ein Eintrag, der bei einem Estimator registriert wird.
type Registration struct {
	Path    string
	Value   any
	History History
}

func (r Registration) String() string {
	return fmt.Sprintf("%s (history %s)", r.Path, r.History)
}

// Flatten liefert fuer jedes Blatt von v ein Registration-Tripel mit Pfad
// root.key1.key2... in Baumreihenfolge. Auch nil ist ein Blatt, etwa die
// Wahrheit im Testmodus.
func Flatten(root string, v any, history History) []Registration {
	var regs []Registration
	walk(root, FromValue(v), history, &regs)
	return regs
}

func walk(path string, t Tree, history History, regs *[]Registration) {
	switch t := t.(type) {
	case Leaf:
		*regs = append(*regs, Registration{Path: path, Value: t.Value, History: history})
	case *Node:
		for k, child := range t.All() {
			walk(path+"."+k, child, history, regs)
		}
	}
}

// Apply registriert regs der Reihe nach; der erste Fehler bricht ab.
func Apply(e Estimator, regs []Registration) error {
	for _, r := range regs {
		if err := e.Register(r.Value, r.Path, r.History); err != nil {
			return err
		}
	}
	return nil
}
