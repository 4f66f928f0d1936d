// cmd_info.go - info Command
// Hauptfunktionen: newInfoCmd, InfoHandler
package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mayo-ml/mayo/config"
	"github.com/mayo-ml/mayo/envconfig"
	"github.com/mayo-ml/mayo/ml"
)

// newInfoCmd - Erstellt den info Command
func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [CONFIG...]",
		Short: "Show the device placement plan and environment",
		RunE:  InfoHandler,
	}
}

// InfoHandler - Zeigt Platzierung der Replikas und Umgebungsvariablen
func InfoHandler(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if len(args) > 0 {
		var err error
		if cfg, err = config.Load(args...); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()

	n, err := ml.ClampDevices(cfg.System.NumGPUs)
	if err != nil {
		return err
	}

	var plan [][]string
	for i := range n {
		reuse := "no"
		if i > 0 {
			reuse = "yes"
		}
		plan = append(plan, []string{fmt.Sprint(i), ml.DeviceName(i), ml.TowerName(i), reuse})
	}
	renderTable(w, []string{"REPLICA", "DEVICE", "SCOPE", "REUSE"}, plan)
	fmt.Fprintln(w)

	if keys := cfg.Model.Keys(); len(keys) > 0 {
		fmt.Fprintf(w, "model: %s\n\n", strings.Join(keys, ", "))
	}

	vals := envconfig.Values()
	var env [][]string
	for _, k := range slices.Sorted(maps.Keys(vals)) {
		env = append(env, []string{k, vals[k]})
	}
	renderTable(w, []string{"VARIABLE", "VALUE"}, env)
	return nil
}
