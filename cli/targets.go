package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/szuyu2308/Tool-Simulator/commands"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List connected targets",
	Long:  `List all Android emulator instances and devices visible to adb.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		response := commands.TargetsCommand()
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
