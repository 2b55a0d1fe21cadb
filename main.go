package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/szuyu2308/Tool-Simulator/cli"
	"github.com/szuyu2308/Tool-Simulator/commands"
)

func main() {
	// setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// run command in goroutine
	done := make(chan error, 1)
	go func() {
		done <- cli.Execute()
	}()

	// wait for command completion or signal
	select {
	case <-sigChan:
		// stop live workers so targets are left in a quiet state
		commands.Manager().Stop()
		os.Exit(0)
	case err := <-done:
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
