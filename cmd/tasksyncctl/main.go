package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/internal/cli"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	if err := cli.NewRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}
