package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/propscan/internal/devserver"
	"github.com/dmitrijs2005/propscan/internal/devserver/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := devserver.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
