package task

import (
	"fmt"
	"iter"

	"github.com/mayo-ml/mayo/ml"
)

// ReplicaFunc is applied to one replica, e.g. to compute its loss.
type ReplicaFunc func(net Net, prediction, truth any) (any, error)

// Replica is a read-only view of one replica.
type Replica struct {
	ml.Placement

	Net        Net
	Input      any
	Prediction any
	Truth      any
	Name       any
}

// Replica returns the view of replica i.
func (t *Task) Replica(i int) (Replica, error) {
	if i < 0 || i >= len(t.nets) {
		return Replica{}, fmt.Errorf("%w: %d", ml.ErrInvalidDevice, i)
	}

	r := Replica{
		Placement:  t.placements[i],
		Net:        t.nets[i],
		Input:      t.inputs[i],
		Prediction: t.predictions[i],
		Truth:      t.truths[i],
	}
	if t.isTest() {
		r.Name = t.names[i]
	}
	return r, nil
}

// Map lazily applies fn to each replica in device order. fn and the
// consumer's handling of its result both run with the replica's device
// bound. Iterating again re-runs fn; replicas are never rebuilt.
func (t *Task) Map(fn ReplicaFunc) iter.Seq2[any, error] {
	return t.each(func(i int) (any, error) {
		return fn(t.nets[i], t.predictions[i], t.truths[i])
	})
}

func (t *Task) each(fn func(i int) (any, error)) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for i := range t.nets {
			if !t.yieldInScope(i, fn, yield) {
				return
			}
		}
	}
}

func (t *Task) yieldInScope(i int, fn func(int) (any, error), yield func(any, error) bool) bool {
	scope, err := t.binder.Bind(i)
	if err != nil {
		return yield(nil, err)
	}
	defer scope.Close()

	return yield(fn(i))
}

// MapTrain returns the loss of every replica in device order.
func (t *Task) MapTrain() ([]any, error) {
	return collect(t.Map(t.hooks.Train))
}

// MapEval returns the metrics of every replica in device order.
func (t *Task) MapEval() ([]any, error) {
	return collect(t.Map(t.hooks.Eval))
}

// MapTest renders every replica's test sample in device order.
func (t *Task) MapTest() ([]string, error) {
	if !t.isTest() {
		return nil, fmt.Errorf("%w: mode %s", ErrNotTestMode, t.mode)
	}

	results, err := collect(t.each(func(i int) (any, error) {
		return t.hooks.Test(t.names[i], t.inputs[i], t.predictions[i])
	}))
	if err != nil {
		return nil, err
	}

	rendered := make([]string, len(results))
	for i, r := range results {
		rendered[i] = r.(string)
	}
	return rendered, nil
}

func collect(seq iter.Seq2[any, error]) ([]any, error) {
	var results []any
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}
