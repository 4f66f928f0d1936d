// Package regression - Lineare Regression als Referenz-Spezialisierung
//
// Jede Replika berechnet y = w·x fuer ihren Eingabevektor. Die Gewichte
// liegen in einem Variablen-Speicher, den alle Replikas nach der ersten
// wiederverwenden.
package regression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/mayo-ml/mayo/config"
	"github.com/mayo-ml/mayo/ml"
	"github.com/mayo-ml/mayo/task"
)

var ErrPrediction = errors.New("prediction has no regression value")

// Options sind die Modell-Parameter aus config.Model.
type Options struct {
	Dim   int
	Seed  uint64
	Noise float64
	Init  float64
}

// ParseOptions liest model.dim, model.seed, model.noise und model.init.
func ParseOptions(m config.Model) Options {
	opts := Options{Dim: 4, Seed: 1, Init: 0.5}
	if v, ok := number(m["dim"]); ok && v > 0 {
		opts.Dim = int(v)
	}
	if v, ok := number(m["seed"]); ok {
		opts.Seed = uint64(v)
	}
	if v, ok := number(m["noise"]); ok {
		opts.Noise = v
	}
	if v, ok := number(m["init"]); ok {
		opts.Init = v
	}
	return opts
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// Task implementiert task.Specialization.
type Task struct {
	ctx  context.Context
	opts Options
	rng  *rand.Rand

	// target sind die Gewichte, aus denen Generate die Wahrheiten erzeugt
	target *mat.VecDense
	vars   *Variables
}

func New(ctx context.Context, m config.Model) *Task {
	opts := ParseOptions(m)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	target := mat.NewVecDense(opts.Dim, nil)
	for i := range opts.Dim {
		target.SetVec(i, rng.NormFloat64())
	}

	return &Task{ctx: ctx, opts: opts, rng: rng, target: target, vars: NewVariables()}
}

func (r *Task) Options() Options {
	return r.opts
}

// Variables liefert den von allen Replikas geteilten Speicher.
func (r *Task) Variables() *Variables {
	return r.vars
}

// Generate liefert eine unendliche Folge zufaelliger Eingaben mit
// Wahrheit target·x (+ Rauschen).
func (r *Task) Generate() (task.Source, error) {
	return func(yield func(task.Pair, error) bool) {
		for {
			x := mat.NewVecDense(r.opts.Dim, nil)
			for i := range r.opts.Dim {
				x.SetVec(i, r.rng.NormFloat64())
			}

			y := mat.Dot(r.target, x) + r.opts.Noise*r.rng.NormFloat64()
			if !yield(task.Pair{Data: x, Additional: y}, nil) {
				return
			}
		}
	}, nil
}

// Net ist eine Replika des linearen Modells.
type Net struct {
	ml.Placement

	Weights *mat.VecDense
	Input   *mat.VecDense
}

func (n *Net) Outputs() any {
	inner := orderedmap.New[string, any]()
	inner.Set("value", mat.Dot(n.Weights, n.Input))

	out := orderedmap.New[string, any]()
	out.Set("regression", inner)
	return out
}

// Build liefert den task.NetBuilder. stack ist der Binder, unter dem der
// Task die Replikas baut.
func (r *Task) Build(stack *ml.Stack) task.NetBuilder {
	return func(_ task.Session, _ config.Model, data any, reuse bool) (task.Net, error) {
		x, ok := data.(*mat.VecDense)
		if !ok {
			return nil, fmt.Errorf("regression: unexpected input %T", data)
		}
		if x.Len() != r.opts.Dim {
			return nil, fmt.Errorf("regression: input has %d values, model expects %d", x.Len(), r.opts.Dim)
		}

		w, err := r.vars.Get("weights", reuse, func() *mat.VecDense {
			init := make([]float64, r.opts.Dim)
			for i := range init {
				init[i] = r.opts.Init
			}
			return mat.NewVecDense(r.opts.Dim, init)
		})
		if err != nil {
			return nil, err
		}

		p, _ := stack.Current()
		return &Net{Placement: p, Weights: w, Input: x}, nil
	}
}

// Value liest den Vorhersagewert aus den Ausgaben einer Replika.
func Value(prediction any) (float64, error) {
	out, ok := prediction.(*orderedmap.OrderedMap[string, any])
	if !ok {
		return 0, ErrPrediction
	}

	inner, ok := out.Get("regression")
	if !ok {
		return 0, ErrPrediction
	}

	m, ok := inner.(*orderedmap.OrderedMap[string, any])
	if !ok {
		return 0, ErrPrediction
	}

	v, ok := m.Get("value")
	if !ok {
		return 0, ErrPrediction
	}

	f, ok := v.(float64)
	if !ok {
		return 0, ErrPrediction
	}
	return f, nil
}

// Train liefert den quadratischen Fehler.
func (r *Task) Train(_ task.Net, prediction, truth any) (any, error) {
	p, err := Value(prediction)
	if err != nil {
		return nil, err
	}

	y, ok := truth.(float64)
	if !ok {
		return nil, fmt.Errorf("regression: unexpected truth %T", truth)
	}
	return (p - y) * (p - y), nil
}

// Eval liefert den absoluten Fehler.
func (r *Task) Eval(_ task.Net, prediction, truth any) (any, error) {
	p, err := Value(prediction)
	if err != nil {
		return nil, err
	}

	y, ok := truth.(float64)
	if !ok {
		return nil, fmt.Errorf("regression: unexpected truth %T", truth)
	}
	return math.Abs(p - y), nil
}

func (r *Task) Test(name, _, prediction any) (string, error) {
	p, err := Value(prediction)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v: %.4f", name, p), nil
}
