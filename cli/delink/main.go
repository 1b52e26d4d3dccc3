// Package main is the delink command itself.
package main

import (
	"log"
	"os"

	"go.viam.com/delink/cli"
)

func main() {
	if err := cli.NewApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
