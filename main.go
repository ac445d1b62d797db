// Copyright (c) 2025 Kishore Bharat

package main

import (
	"context"
	"log"
	"os"

	"github.com/kbharat/chasebot/subcmds"

	"github.com/visvasity/cli"
)

func main() {
	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Setup),
		new(subcmds.Buy),
		new(subcmds.Sell),
		new(subcmds.IDGen),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
