package main

import (
	"github.com/BioHazard786/warpmesh/cmd"
	"github.com/BioHazard786/warpmesh/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
