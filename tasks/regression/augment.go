package regression

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/mayo-ml/mayo/task"
)

// maxReaders begrenzt gleichzeitig gelesene Eingabedateien
const maxReaders = 4

// Augment liest alle *.txt-Dateien aus folder. Jede Datei enthaelt einen
// Eingabevektor als durch Leerraum getrennte Zahlen; der Dateiname ist der
// Name des Samples. Die Reihenfolge folgt den sortierten Dateinamen.
func (r *Task) Augment(folder string) (task.Source, error) {
	files, err := filepath.Glob(filepath.Join(folder, "*.txt"))
	if err != nil {
		return nil, err
	}
	slices.Sort(files)

	vectors := make([]*mat.VecDense, len(files))

	g, ctx := errgroup.WithContext(r.ctx)
	g.SetLimit(maxReaders)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			v, err := r.readVector(file)
			if err != nil {
				return err
			}
			vectors[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("loaded test inputs", "folder", folder, "count", len(files))

	return func(yield func(task.Pair, error) bool) {
		for i, v := range vectors {
			if !yield(task.Pair{Data: v, Additional: filepath.Base(files[i])}, nil) {
				return
			}
		}
	}, nil
}

func (r *Task) readVector(file string) (*mat.VecDense, error) {
	bts, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(string(bts))
	if len(fields) != r.opts.Dim {
		return nil, fmt.Errorf("%s: expected %d values, got %d", file, r.opts.Dim, len(fields))
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		values[i], err = strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	return mat.NewVecDense(len(values), values), nil
}
