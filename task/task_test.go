package task

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/mayo-ml/mayo/config"
	"github.com/mayo-ml/mayo/estimate"
	"github.com/mayo-ml/mayo/ml"
)

// ============================================================================
// Test-Doubles
// ============================================================================

type fakeSession struct {
	cfg  *config.Config
	mode Mode
	est  estimate.Estimator
}

func (s *fakeSession) Config() *config.Config        { return s.cfg }
func (s *fakeSession) Mode() Mode                    { return s.mode }
func (s *fakeSession) Estimator() estimate.Estimator { return s.est }

func newSession(t *testing.T, mode Mode, gpus int) (*fakeSession, *recorder) {
	t.Helper()
	t.Setenv("CUDA_VISIBLE_DEVICES", "")
	t.Setenv("HIP_VISIBLE_DEVICES", "")

	cfg := config.Default()
	cfg.System.NumGPUs = gpus
	cfg.System.SearchPath.Run.Inputs = []string{"inputs"}

	rec := &recorder{}
	return &fakeSession{cfg: cfg, mode: mode, est: rec}, rec
}

type registration struct {
	Path    string
	Value   any
	History string
}

type recorder struct {
	registered []registration
}

func (r *recorder) Register(value any, path string, history estimate.History) error {
	r.registered = append(r.registered, registration{path, value, history.String()})
	return nil
}

type fakeNet struct {
	data      any
	reuse     bool
	placement ml.Placement
}

func (n *fakeNet) Outputs() any {
	return map[string]any{"class": fmt.Sprintf("p(%v)", n.data)}
}

// builder zeichnet die aktive Platzierung jeder Replika auf.
func builder(stack *ml.Stack) NetBuilder {
	return func(_ Session, _ config.Model, data any, reuse bool) (Net, error) {
		p, _ := stack.Current()
		return &fakeNet{data: data, reuse: reuse, placement: p}, nil
	}
}

type pairs []Pair

func (p pairs) source() Source {
	return func(yield func(Pair, error) bool) {
		for _, pair := range p {
			if !yield(pair, nil) {
				return
			}
		}
	}
}

type fakeTask struct {
	Unimplemented
	samples pairs
	folder  string
}

func (f *fakeTask) Generate() (Source, error) {
	return f.samples.source(), nil
}

func (f *fakeTask) Augment(folder string) (Source, error) {
	f.folder = folder
	return f.samples.source(), nil
}

func (f *fakeTask) Train(net Net, prediction, truth any) (any, error) {
	return fmt.Sprintf("loss(%v,%v)", prediction.(map[string]any)["class"], truth), nil
}

func (f *fakeTask) Eval(net Net, prediction, truth any) (any, error) {
	return fmt.Sprintf("metric(%v)", truth), nil
}

func (f *fakeTask) Test(name, inputs, prediction any) (string, error) {
	return fmt.Sprintf("%v: %v", name, prediction.(map[string]any)["class"]), nil
}

func samples(n int) pairs {
	var p pairs
	for i := range n {
		p = append(p, Pair{Data: fmt.Sprintf("d%d", i), Additional: fmt.Sprintf("t%d", i)})
	}
	return p
}

// ============================================================================
// Konstruktion
// ============================================================================

func TestNewTrain(t *testing.T) {
	s, rec := newSession(t, ModeTrain, 2)
	stack := ml.NewStack()

	tk, err := New(s, &fakeTask{samples: samples(2)}, builder(stack), WithBinder(stack))
	require.NoError(t, err)

	if diff := cmp.Diff([]any{"d0", "d1"}, tk.Inputs()); diff != "" {
		t.Errorf("Inputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"t0", "t1"}, tk.Truths()); diff != "" {
		t.Errorf("Truths mismatch (-want +got):\n%s", diff)
	}
	if tk.Names() != nil {
		t.Errorf("Names: erwartet nil ausserhalb des Testmodus, bekommen %v", tk.Names())
	}

	want := []registration{
		{Path: "prediction.class", Value: "p(d0)", History: "default"},
		{Path: "truth", Value: "t0", History: "default"},
	}
	if diff := cmp.Diff(want, rec.registered); diff != "" {
		t.Errorf("Registrierungen mismatch (-want +got):\n%s", diff)
	}

	if stack.Depth() != 0 {
		t.Errorf("Depth: erwartet 0 nach der Konstruktion, bekommen %d", stack.Depth())
	}
}

func TestNewLengths(t *testing.T) {
	for _, n := range []int{1, 2, 3, 8} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			s, rec := newSession(t, ModeTrain, n)
			tk, err := New(s, &fakeTask{samples: samples(n + 1)}, builder(ml.NewStack()))
			require.NoError(t, err)

			for name, got := range map[string]int{
				"nets":        len(tk.Nets()),
				"inputs":      len(tk.Inputs()),
				"predictions": len(tk.Predictions()),
				"truths":      len(tk.Truths()),
			} {
				if got != n {
					t.Errorf("len(%s): erwartet %d, bekommen %d", name, n, got)
				}
			}

			if tk.NumDevices() != n {
				t.Errorf("NumDevices: erwartet %d, bekommen %d", n, tk.NumDevices())
			}

			// einmal insgesamt, nicht pro Replika
			if len(rec.registered) != 2 {
				t.Errorf("Registrierungen: erwartet 2, bekommen %d", len(rec.registered))
			}
		})
	}
}

func TestNewIgnoresVisibleDevices(t *testing.T) {
	s, _ := newSession(t, ModeTrain, 2)
	t.Setenv("CUDA_VISIBLE_DEVICES", "0")

	tk, err := New(s, &fakeTask{samples: samples(2)}, builder(ml.NewStack()))
	require.NoError(t, err)

	if tk.NumDevices() != 2 || len(tk.Nets()) != 2 {
		t.Errorf("erwartet 2 Replikas wie konfiguriert, bekommen %d/%d", tk.NumDevices(), len(tk.Nets()))
	}
}

func TestNewNoDevices(t *testing.T) {
	s, _ := newSession(t, ModeTrain, 0)

	if _, err := New(s, &fakeTask{samples: samples(1)}, builder(ml.NewStack())); !errors.Is(err, ml.ErrNoDevices) {
		t.Errorf("New: erwartet ErrNoDevices, bekommen %v", err)
	}
}

func TestNewPlacement(t *testing.T) {
	s, _ := newSession(t, ModeTrain, 3)
	stack := ml.NewStack()

	tk, err := New(s, &fakeTask{samples: samples(3)}, builder(stack), WithBinder(stack))
	require.NoError(t, err)

	for i, net := range tk.Nets() {
		fn := net.(*fakeNet)
		want := ml.Placement{Index: i, Device: ml.DeviceName(i), Scope: ml.TowerName(i)}
		if fn.placement != want {
			t.Errorf("Replika %d: erwartet %+v, bekommen %+v", i, want, fn.placement)
		}
		if fn.reuse != (i > 0) {
			t.Errorf("Replika %d: reuse erwartet %v", i, i > 0)
		}

		r, err := tk.Replica(i)
		require.NoError(t, err)
		if r.Placement != want || r.Input != fmt.Sprintf("d%d", i) {
			t.Errorf("Replica(%d): unerwartet %+v", i, r)
		}
	}

	if _, err := tk.Replica(3); !errors.Is(err, ml.ErrInvalidDevice) {
		t.Errorf("Replica(3): erwartet ErrInvalidDevice, bekommen %v", err)
	}
}

func TestNewValidateHistory(t *testing.T) {
	s, rec := newSession(t, ModeValidate, 2)

	tk, err := New(s, &fakeTask{samples: samples(2)}, builder(ml.NewStack()))
	require.NoError(t, err)

	for _, r := range rec.registered {
		if r.History != "infinite" {
			t.Errorf("%s: erwartet infinite, bekommen %s", r.Path, r.History)
		}
	}

	for _, r := range tk.Registrations() {
		if !r.History.IsInfinite() {
			t.Errorf("Registrations: %s sollte infinite sein", r.Path)
		}
	}
}

func TestNewTest(t *testing.T) {
	s, rec := newSession(t, ModeTest, 2)
	impl := &fakeTask{samples: pairs{{Data: "img0", Additional: "a.png"}, {Data: "img1", Additional: "b.png"}}}

	tk, err := New(s, impl, builder(ml.NewStack()))
	require.NoError(t, err)

	if impl.folder != "inputs" {
		t.Errorf("Augment: erwartet Ordner inputs, bekommen %q", impl.folder)
	}
	if diff := cmp.Diff([]any{"a.png", "b.png"}, tk.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{nil, nil}, tk.Truths()); diff != "" {
		t.Errorf("Truths mismatch (-want +got):\n%s", diff)
	}

	want := []registration{
		{Path: "prediction.class", Value: "p(img0)", History: "default"},
		{Path: "truth", Value: nil, History: "default"},
	}
	if diff := cmp.Diff(want, rec.registered); diff != "" {
		t.Errorf("Registrierungen mismatch (-want +got):\n%s", diff)
	}

	results, err := tk.MapTest()
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"a.png: p(img0)", "b.png: p(img1)"}, results); diff != "" {
		t.Errorf("MapTest mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTestWithoutInputs(t *testing.T) {
	s, _ := newSession(t, ModeTest, 1)
	s.cfg.System.SearchPath.Run.Inputs = nil

	if _, err := New(s, &fakeTask{samples: samples(1)}, builder(ml.NewStack())); !errors.Is(err, ErrNoInputs) {
		t.Errorf("New: erwartet ErrNoInputs, bekommen %v", err)
	}
}

func TestNewShortSource(t *testing.T) {
	s, _ := newSession(t, ModeTrain, 3)

	_, err := New(s, &fakeTask{samples: samples(2)}, builder(ml.NewStack()))
	if !errors.Is(err, ErrShortSource) {
		t.Errorf("New: erwartet ErrShortSource, bekommen %v", err)
	}
}

func TestNewPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("builder", func(t *testing.T) {
		s, _ := newSession(t, ModeTrain, 2)
		stack := ml.NewStack()

		calls := 0
		build := func(Session, config.Model, any, bool) (Net, error) {
			calls++
			if calls == 2 {
				return nil, boom
			}
			return &fakeNet{}, nil
		}

		_, err := New(s, &fakeTask{samples: samples(2)}, build, WithBinder(stack))
		if err != boom {
			t.Errorf("New: erwartet unveraenderten Fehler, bekommen %v", err)
		}
		if stack.Depth() != 0 {
			t.Errorf("Depth: Scope sollte auch im Fehlerfall freigegeben sein, bekommen %d", stack.Depth())
		}
	})

	t.Run("source", func(t *testing.T) {
		s, _ := newSession(t, ModeTrain, 2)
		impl := &sourceTask{src: func(yield func(Pair, error) bool) {
			if !yield(Pair{Data: 1, Additional: 2}, nil) {
				return
			}
			yield(Pair{}, boom)
		}}

		if _, err := New(s, impl, builder(ml.NewStack())); err != boom {
			t.Errorf("New: erwartet unveraenderten Fehler, bekommen %v", err)
		}
	})
}

type sourceTask struct {
	Unimplemented
	src Source
}

func (s *sourceTask) Generate() (Source, error) { return s.src, nil }

// ============================================================================
// Map
// ============================================================================

func TestMapOrder(t *testing.T) {
	s, _ := newSession(t, ModeTrain, 3)
	stack := ml.NewStack()

	tk, err := New(s, &fakeTask{samples: samples(3)}, builder(stack), WithBinder(stack))
	require.NoError(t, err)

	var got []string
	fn := func(net Net, prediction, truth any) (any, error) {
		p, _ := stack.Current()
		return fmt.Sprintf("%s:%v:%v", p.Device, prediction.(map[string]any)["class"], truth), nil
	}

	for v, err := range tk.Map(fn) {
		require.NoError(t, err)
		got = append(got, v.(string))
	}

	want := []string{"/gpu:0:p(d0):t0", "/gpu:1:p(d1):t1", "/gpu:2:p(d2):t2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Map mismatch (-want +got):\n%s", diff)
	}

	// erneutes Iterieren fuehrt fn erneut aus, baut aber keine Replikas neu
	count := 0
	for range tk.Map(fn) {
		count++
	}
	if count != 3 || len(tk.Nets()) != 3 {
		t.Errorf("Map: erwartet 3 Elemente und 3 Replikas, bekommen %d und %d", count, len(tk.Nets()))
	}
}

func TestMapBreakReleasesScope(t *testing.T) {
	s, _ := newSession(t, ModeTrain, 2)
	stack := ml.NewStack()

	tk, err := New(s, &fakeTask{samples: samples(2)}, builder(stack), WithBinder(stack))
	require.NoError(t, err)

	for range tk.Map(func(Net, any, any) (any, error) { return nil, nil }) {
		if stack.Depth() != 1 {
			t.Errorf("Depth: erwartet 1 waehrend der Iteration, bekommen %d", stack.Depth())
		}
		break
	}

	if stack.Depth() != 0 {
		t.Errorf("Depth: erwartet 0 nach break, bekommen %d", stack.Depth())
	}
}

func TestMapTrainEval(t *testing.T) {
	s, _ := newSession(t, ModeTrain, 2)
	impl := &fakeTask{samples: samples(2)}

	tk, err := New(s, impl, builder(ml.NewStack()))
	require.NoError(t, err)

	losses, err := tk.MapTrain()
	require.NoError(t, err)

	var want []any
	for i := range 2 {
		v, _ := impl.Train(tk.Nets()[i], tk.Predictions()[i], tk.Truths()[i])
		want = append(want, v)
	}
	if diff := cmp.Diff(want, losses); diff != "" {
		t.Errorf("MapTrain mismatch (-want +got):\n%s", diff)
	}

	metrics, err := tk.MapEval()
	require.NoError(t, err)
	if diff := cmp.Diff([]any{"metric(t0)", "metric(t1)"}, metrics); diff != "" {
		t.Errorf("MapEval mismatch (-want +got):\n%s", diff)
	}

	if _, err := tk.MapTest(); !errors.Is(err, ErrNotTestMode) {
		t.Errorf("MapTest: erwartet ErrNotTestMode, bekommen %v", err)
	}
}

// ============================================================================
// Override-Punkte
// ============================================================================

type bareTask struct {
	Unimplemented
}

func TestUnimplemented(t *testing.T) {
	var impl Specialization = bareTask{}

	calls := map[string]func() error{
		"Generate": func() error { _, err := impl.Generate(); return err },
		"Augment":  func() error { _, err := impl.Augment("inputs"); return err },
		"Train":    func() error { _, err := impl.Train(nil, nil, nil); return err },
		"Eval":     func() error { _, err := impl.Eval(nil, nil, nil); return err },
		"Test":     func() error { _, err := impl.Test(nil, nil, nil); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, ErrUnimplemented) {
				t.Fatalf("%s: erwartet ErrUnimplemented, bekommen %v", name, err)
			}

			var ue *UnimplementedError
			if !errors.As(err, &ue) || ue.Capability != name || ue.Contract == "" {
				t.Errorf("%s: unerwarteter Fehler %#v", name, err)
			}
		})
	}
}

func TestNewUnimplementedSource(t *testing.T) {
	s, rec := newSession(t, ModeTrain, 1)

	_, err := New(s, bareTask{}, builder(ml.NewStack()))
	if !errors.Is(err, ErrUnimplemented) {
		t.Errorf("New: erwartet ErrUnimplemented, bekommen %v", err)
	}
	if len(rec.registered) != 0 {
		t.Errorf("Registrierungen: erwartet keine, bekommen %v", rec.registered)
	}
}

func TestMapTrainUnimplemented(t *testing.T) {
	s, _ := newSession(t, ModeTrain, 2)

	tk, err := New(s, &sourceTask{src: samples(2).source()}, builder(ml.NewStack()))
	require.NoError(t, err)

	if _, err := tk.MapTrain(); !errors.Is(err, ErrUnimplemented) {
		t.Errorf("MapTrain: erwartet ErrUnimplemented, bekommen %v", err)
	}
}

// ============================================================================
// Transform
// ============================================================================

type transformTask struct {
	fakeTask
}

func (transformTask) Transform(_ Net, data, prediction, truth any) (any, any, any) {
	return fmt.Sprintf("norm(%v)", data), map[string]any{"class": "x", "raw": prediction}, truth
}

func TestTransform(t *testing.T) {
	s, rec := newSession(t, ModeTrain, 1)

	tk, err := New(s, &transformTask{fakeTask{samples: samples(1)}}, builder(ml.NewStack()))
	require.NoError(t, err)

	if tk.Inputs()[0] != "norm(d0)" {
		t.Errorf("Inputs: erwartet norm(d0), bekommen %v", tk.Inputs()[0])
	}

	var paths []string
	for _, r := range rec.registered {
		paths = append(paths, r.Path)
	}
	if diff := cmp.Diff([]string{"prediction.class", "prediction.raw.class", "truth"}, paths); diff != "" {
		t.Errorf("Registrierungen mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================================
// Typisierte Ausgaben
// ============================================================================

type typedNet struct{}

func (typedNet) Outputs() any {
	return map[string]float64{"class": 0.7}
}

func TestNewTypedMaps(t *testing.T) {
	s, rec := newSession(t, ModeTrain, 1)
	impl := &fakeTask{samples: pairs{{Data: "d0", Additional: map[string]map[string]int{"a": {"b": 1}}}}}
	build := func(Session, config.Model, any, bool) (Net, error) { return typedNet{}, nil }

	_, err := New(s, impl, build)
	require.NoError(t, err)

	want := []registration{
		{Path: "prediction.class", Value: 0.7, History: "default"},
		{Path: "truth.a.b", Value: 1, History: "default"},
	}
	if diff := cmp.Diff(want, rec.registered); diff != "" {
		t.Errorf("Registrierungen mismatch (-want +got):\n%s", diff)
	}
}
