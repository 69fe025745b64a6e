package main

import (
	"os"

	"github.com/trezcool/kodi/core"
)

func main() {
	cli := newCommandLine(core.NewConfig, os.Stdout)
	err := cli.run(os.Args[1:])
	cli.close()
	if err != nil {
		os.Exit(1)
	}
}
