package main

import (
	"fmt"
	"os"

	"github.com/brightpath/studyplan-core/internal/cli"
)

func main() {
	app := cli.NewApp()
	defer app.Close() //nolint:errcheck

	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
