package main

import (
	"context"
	"os"

	"github.com/yigit/saffron/internal/pkg/logger"
)

func main() {
	r := newRunner(os.Stdout)
	if err := r.command().Run(context.Background(), os.Args); err != nil {
		logger.Error().Err(err).Msg("saffronctl failed")
		os.Exit(1)
	}
}
