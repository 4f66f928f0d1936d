// Package task - Basis fuer Multi-GPU-Aufgaben (Training, Validierung, Test)
//
// Ein Task baut pro Geraet eine Replika des Netzes, fuehrt Eingaben,
// Vorhersagen und Wahrheiten parallel indiziert und wendet die Hooks der
// Spezialisierung (Train, Eval, Test) ueber alle Replikas an.
//
// Hauptkomponenten:
// - Task: Koordinator der Replikas
// - Specialization: Override-Punkte Generate/Augment/Train/Eval/Test
// - Session: Konfiguration, Modus und Estimator
// - NetBuilder: erzeugt eine geraetegebundene Replika
package task

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/mayo-ml/mayo/config"
	"github.com/mayo-ml/mayo/estimate"
	"github.com/mayo-ml/mayo/logutil"
	"github.com/mayo-ml/mayo/ml"
)

// Mode is the run mode of a session.
type Mode string

const (
	ModeTrain    Mode = "train"
	ModeValidate Mode = "validate"
	ModeTest     Mode = "test"
)

func (m Mode) String() string {
	return string(m)
}

// Session supplies configuration, run mode and the estimator a task
// registers its outputs with.
type Session interface {
	Config() *config.Config
	Mode() Mode
	Estimator() estimate.Estimator
}

// Net is one device-bound replica of the graph.
type Net interface {
	Outputs() any
}

// NetBuilder constructs a replica from its input data. reuse is true for
// every replica after the first, which must share parameters with it.
type NetBuilder func(s Session, model config.Model, data any, reuse bool) (Net, error)

// Option configures a Task.
type Option func(*Task)

// WithBinder replaces the default ml.Stack binder.
func WithBinder(b ml.Binder) Option {
	return func(t *Task) {
		t.binder = b
	}
}

// Task coordinates one replica per device. The slices are indexed by
// replica id and never change after New returns.
type Task struct {
	config    *config.Config
	mode      Mode
	numGPUs   int
	estimator estimate.Estimator
	binder    ml.Binder
	hooks     Specialization

	nets        []Net
	inputs      []any
	predictions []any
	truths      []any
	names       []any
	placements  []ml.Placement

	registrations []estimate.Registration
}

// New builds one replica per configured GPU in increasing device order.
// The count is taken from system.num_gpus as given; matching it against the
// visible devices is up to the caller (see ml.ClampDevices). Replica 0
// registers its prediction and truth with the session's estimator.
func New(s Session, hooks Specialization, build NetBuilder, opts ...Option) (*Task, error) {
	cfg := s.Config()
	if cfg == nil {
		cfg = config.Default()
	}

	if cfg.System.NumGPUs < 1 {
		return nil, fmt.Errorf("%w: num_gpus %d", ml.ErrNoDevices, cfg.System.NumGPUs)
	}

	t := &Task{
		config:    cfg,
		mode:      s.Mode(),
		numGPUs:   cfg.System.NumGPUs,
		estimator: s.Estimator(),
		binder:    ml.NewStack(),
		hooks:     hooks,
	}

	for _, opt := range opts {
		opt(t)
	}

	src, err := t.source()
	if err != nil {
		return nil, err
	}

	if err := t.setup(s, build, src); err != nil {
		return nil, err
	}

	slog.Info("task ready", "mode", t.mode, "devices", t.numGPUs, "estimates", len(t.registrations))
	return t, nil
}

func (t *Task) isTest() bool {
	return t.mode == ModeTest
}

func (t *Task) source() (Source, error) {
	if !t.isTest() {
		return t.hooks.Generate()
	}

	folder, ok := t.config.Input()
	if !ok {
		return nil, ErrNoInputs
	}
	return t.hooks.Augment(folder)
}

func (t *Task) setup(s Session, build NetBuilder, src Source) error {
	next, stop := iter.Pull2(src)
	defer stop()

	for i := range t.numGPUs {
		pair, err, ok := next()
		if !ok {
			return fmt.Errorf("%w: %d of %d samples", ErrShortSource, i, t.numGPUs)
		}
		if err != nil {
			return err
		}

		if err := t.replicate(s, build, i, pair); err != nil {
			return err
		}
	}

	return nil
}

func (t *Task) replicate(s Session, build NetBuilder, i int, pair Pair) error {
	var name, truth any
	if t.isTest() {
		name = pair.Additional
	} else {
		truth = pair.Additional
	}

	scope, err := t.binder.Bind(i)
	if err != nil {
		return err
	}
	defer scope.Close()

	net, err := build(s, t.config.Model, pair.Data, i > 0)
	if err != nil {
		return err
	}

	data := pair.Data
	prediction := net.Outputs()
	if tr, ok := t.hooks.(Transformer); ok {
		data, prediction, truth = tr.Transform(net, data, prediction, truth)
	}

	if i == 0 {
		if err := t.register(prediction, truth); err != nil {
			return err
		}
	}

	t.nets = append(t.nets, net)
	t.inputs = append(t.inputs, data)
	t.predictions = append(t.predictions, prediction)
	t.truths = append(t.truths, truth)
	t.placements = append(t.placements, scope.Placement)
	if t.isTest() {
		t.names = append(t.names, name)
	}

	slog.Debug("built replica", "device", scope.Device, "scope", scope.Scope, "reuse", i > 0)
	return nil
}

// register flattens replica 0's outputs; every replica is assumed to share
// their structure.
func (t *Task) register(prediction, truth any) error {
	history := estimate.DefaultHistory
	if t.mode == ModeValidate {
		history = estimate.Infinite
	}

	regs := estimate.Flatten("prediction", prediction, history)
	regs = append(regs, estimate.Flatten("truth", truth, history)...)
	t.registrations = regs

	if t.estimator == nil {
		logutil.Trace("no estimator, skipping registration", "estimates", len(regs))
		return nil
	}
	return estimate.Apply(t.estimator, regs)
}

func (t *Task) Mode() Mode {
	return t.mode
}

func (t *Task) Config() *config.Config {
	return t.config
}

// NumDevices is the number of replicas.
func (t *Task) NumDevices() int {
	return t.numGPUs
}

func (t *Task) Nets() []Net        { return t.nets }
func (t *Task) Inputs() []any      { return t.inputs }
func (t *Task) Predictions() []any { return t.predictions }
func (t *Task) Truths() []any      { return t.truths }

// Names is nil outside test mode.
func (t *Task) Names() []any { return t.names }

// Registrations returns what replica 0 registered with the estimator.
func (t *Task) Registrations() []estimate.Registration {
	return t.registrations
}
