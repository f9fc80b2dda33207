package main

import (
	"os"

	"github.com/jzx17/goexecutor/internal/cli"
	"github.com/jzx17/goexecutor/internal/logging"
	"github.com/jzx17/goexecutor/internal/util"
)

func main() {
	logger := logging.New(nil)

	// Setup signal handling for graceful shutdown
	ctx := util.SetupSignalHandler(logger)

	if err := cli.Execute(ctx); err != nil {
		logger.Err().Err(err).Log("command failed")
		os.Exit(1)
	}
}
