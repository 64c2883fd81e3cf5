package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/propscan/internal/client/cli"
	"github.com/dmitrijs2005/propscan/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
