package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/mediavault/internal/admin"
	"github.com/dmitrijs2005/mediavault/internal/server"
	"github.com/dmitrijs2005/mediavault/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	args := admin.CommandArgs(os.Args[1:])
	if args == nil {
		log.Fatal(admin.ErrUsage)
	}

	auth, closer, err := server.OpenAdminAuth(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closer.Close()

	if err := admin.New(auth, os.Stdin, os.Stdout).Run(ctx, args); err != nil {
		closer.Close()
		log.Fatalf("%v", err)
	}
}
