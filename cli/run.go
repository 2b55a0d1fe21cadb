package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/szuyu2308/Tool-Simulator/commands"
)

var validateCmd = &cobra.Command{
	Use:   "validate <script.json>",
	Short: "Validate a script file",
	Long:  `Loads a script file and checks name uniqueness, label resolution, field ranges and expression syntax without running it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		response := commands.ValidateCommand(args[0])
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <script.json>",
	Short: "Run a script on one or more targets",
	Long:  `Runs a script to completion on the given targets, or on every connected target when none are named. Each target gets its own worker.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		response := commands.RunCommand(commands.RunRequest{
			ScriptPath: args[0],
			Targets:    runTargets,
		})
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)

	// run command flags
	runCmd.Flags().StringSliceVarP(&runTargets, "target", "t", nil, "target serial, repeatable (default: all connected)")
}
