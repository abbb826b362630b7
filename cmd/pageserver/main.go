package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/searchktools/pageserver/app"
	"github.com/searchktools/pageserver/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pageserver: %v\n", err)
		os.Exit(2)
	}

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pageserver: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		application.Logger().Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
