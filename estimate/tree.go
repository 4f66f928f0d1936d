// Package estimate - Schaetzwerte (Estimates) fuer Metriken und Verluste
//
// Dieses Paket bildet verschachtelte Ausgaben einer Replika als Baum ab und
// registriert dessen Blaetter unter punktierten Pfaden bei einem Estimator.
//
// Hauptkomponenten:
// - Tree: Leaf | *Node, explizit rekursiv durchlaufen
// - Registration: (Pfad, Wert, Historie)-Tripel
// - Estimator: Senke fuer Registrierungen
// - Memory: In-Memory-Estimator mit Historien-Fenstern und Statistik
package estimate

import (
	"cmp"
	"iter"
	"maps"
	"reflect"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Tree ist entweder ein Leaf oder ein *Node.
type Tree interface {
	tree()
}

// Leaf haelt einen beliebigen Wert, typischerweise einen Tensor oder Skalar.
type Leaf struct {
	Value any
}

// Node bildet Schluessel auf Teilbaeume ab und behaelt die Einfuegereihenfolge.
type Node struct {
	children *orderedmap.OrderedMap[string, Tree]
}

func (Leaf) tree()  {}
func (*Node) tree() {}

func NewNode() *Node {
	return &Node{children: orderedmap.New[string, Tree]()}
}

// Set fuegt einen Teilbaum ein oder ersetzt ihn an seiner bisherigen Position.
func (n *Node) Set(key string, child Tree) *Node {
	n.children.Set(key, child)
	return n
}

func (n *Node) Get(key string) (Tree, bool) {
	return n.children.Get(key)
}

func (n *Node) Len() int {
	return n.children.Len()
}

// All liefert die Kinder in Einfuegereihenfolge.
func (n *Node) All() iter.Seq2[string, Tree] {
	return func(yield func(string, Tree) bool) {
		for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// FromValue wandelt eine Ausgabestruktur in einen Tree. Maps mit
// String-Schluesseln werden nach sortierten Schluesseln,
// *orderedmap.OrderedMap in Einfuegereihenfolge abgestiegen; alles andere ist
// ein Leaf.
func FromValue(v any) Tree {
	switch v := v.(type) {
	case Tree:
		return v
	case map[string]any:
		node := NewNode()
		for _, k := range slices.Sorted(maps.Keys(v)) {
			node.Set(k, FromValue(v[k]))
		}
		return node
	case *orderedmap.OrderedMap[string, any]:
		node := NewNode()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			node.Set(pair.Key, FromValue(pair.Value))
		}
		return node
	default:
		if node, ok := fromMap(reflect.ValueOf(v)); ok {
			return node
		}
		return Leaf{Value: v}
	}
}

// fromMap deckt typisierte Maps ab, z.B. map[string]float64 oder
// map[string]map[string]int.
func fromMap(rv reflect.Value) (*Node, bool) {
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, false
	}

	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return cmp.Compare(a.String(), b.String())
	})

	node := NewNode()
	for _, k := range keys {
		node.Set(k.String(), FromValue(rv.MapIndex(k).Interface()))
	}
	return node, true
}
