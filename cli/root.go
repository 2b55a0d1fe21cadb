package cli

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/szuyu2308/Tool-Simulator/commands"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

const version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scriptrunner",
	Short: "An automation script engine for Android emulator instances",
	Long:  `Runs user-authored automation scripts against connected Android emulator instances over adb.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func initConfig() {
	utils.SetVerbose(verbose)

	path := configPath
	if path == "" {
		path = utils.DefaultConfigPath()
	}
	cfg, err := utils.LoadConfig(path)
	if err != nil {
		utils.Warn("config %s: %v, using defaults", path, err)
		cfg = utils.DefaultConfig()
	}
	if adbPath != "" {
		cfg.AdbPath = adbPath
	}
	commands.Setup(cfg)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&adbPath, "adb", "", "path to the adb binary")
}

// Execute runs the root command
func Execute() error {
	// enable microseconds in logs
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return rootCmd.Execute()
}

// printJson is a helper function to print JSON responses
func printJson(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(jsonData))
}
