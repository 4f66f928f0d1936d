// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mayo-ml/mayo/envconfig"
	"github.com/mayo-ml/mayo/logutil"
	"github.com/mayo-ml/mayo/task"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "mayo",
		Short:         "Multi-GPU task runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
	}

	trainCmd := newModeCmd(task.ModeTrain, "Build one replica per GPU and report training losses")
	validateCmd := newModeCmd(task.ModeValidate, "Build one replica per GPU and report evaluation metrics")
	testCmd := newModeCmd(task.ModeTest, "Run the replicas on the configured test inputs")
	infoCmd := newInfoCmd()

	envVars := envconfig.AsMap()
	for _, cmd := range []*cobra.Command{trainCmd, validateCmd, testCmd, infoCmd} {
		envs := []envconfig.EnvVar{
			envVars["MAYO_DEBUG"],
			envVars["MAYO_NUM_GPUS"],
			envVars["MAYO_HISTORY"],
			envVars["MAYO_STRICT_DEVICES"],
			envVars["CUDA_VISIBLE_DEVICES"],
		}
		if cmd == testCmd {
			envs = append(envs, envVars["MAYO_INPUTS"])
		}
		appendEnvDocs(cmd, envs)
	}

	rootCmd.AddCommand(trainCmd, validateCmd, testCmd, infoCmd)
	return rootCmd
}
