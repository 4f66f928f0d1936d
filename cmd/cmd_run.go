// cmd_run.go - train/validate/test Commands
// Hauptfunktionen: newModeCmd, RunHandler, record
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mayo-ml/mayo/config"
	"github.com/mayo-ml/mayo/estimate"
	"github.com/mayo-ml/mayo/ml"
	"github.com/mayo-ml/mayo/session"
	"github.com/mayo-ml/mayo/task"
	"github.com/mayo-ml/mayo/tasks/regression"
)

// newModeCmd - Erstellt den Command fuer einen Session-Modus
func newModeCmd(mode task.Mode, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   mode.String() + " CONFIG [CONFIG...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunHandler(cmd, mode, args)
		},
	}

	cmd.Flags().Int("gpus", 0, "Override system.num_gpus")
	return cmd
}

// RunHandler - Laedt die Konfiguration, baut den Task und gibt die
// Ergebnisse der Replikas aus
func RunHandler(cmd *cobra.Command, mode task.Mode, args []string) error {
	cfg, err := config.Load(args...)
	if err != nil {
		return err
	}

	if gpus, _ := cmd.Flags().GetInt("gpus"); gpus > 0 {
		cfg.SetNumGPUs(gpus)
	}

	n, err := ml.ClampDevices(cfg.System.NumGPUs)
	if err != nil {
		return err
	}
	cfg.SetNumGPUs(n)

	s, err := session.New(mode, cfg)
	if err != nil {
		return err
	}
	slog.Info("starting session", "id", s.ID(), "mode", mode, "model", cfg.Model.Name())

	stack := ml.NewStack()
	r := regression.New(cmd.Context(), cfg.Model)

	tk, err := task.New(s, r, r.Build(stack), task.WithBinder(stack))
	if err != nil {
		return err
	}

	mem := s.Memory()
	if err := record(mem, tk); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch mode {
	case task.ModeTrain:
		losses, err := tk.MapTrain()
		if err != nil {
			return err
		}
		if err := observe(mem, "loss", estimate.DefaultHistory, losses); err != nil {
			return err
		}
	case task.ModeValidate:
		metrics, err := tk.MapEval()
		if err != nil {
			return err
		}
		if err := observe(mem, "metric", estimate.Infinite, metrics); err != nil {
			return err
		}
	case task.ModeTest:
		results, err := tk.MapTest()
		if err != nil {
			return err
		}
		for _, line := range results {
			fmt.Fprintln(w, line)
		}
		return nil
	}

	renderSummary(w, mem.Summary())
	return nil
}

// record - Traegt die Skalare aller Replikas unter den von Replika 0
// registrierten Pfaden ein
func record(mem *estimate.Memory, tk *task.Task) error {
	history := estimate.DefaultHistory
	if tk.Mode() == task.ModeValidate {
		history = estimate.Infinite
	}

	for i := range tk.NumDevices() {
		regs := estimate.Flatten("prediction", tk.Predictions()[i], history)
		regs = append(regs, estimate.Flatten("truth", tk.Truths()[i], history)...)

		for _, r := range regs {
			v, ok := r.Value.(float64)
			if !ok {
				continue
			}
			if err := mem.Add(r.Path, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// observe - Registriert path und traegt die Werte aller Replikas ein
func observe(mem *estimate.Memory, path string, history estimate.History, values []any) error {
	if err := mem.Register(nil, path, history); err != nil {
		return err
	}

	for _, v := range values {
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("%s: unexpected value %T", path, v)
		}
		if err := mem.Add(path, f); err != nil {
			return err
		}
	}
	return nil
}
