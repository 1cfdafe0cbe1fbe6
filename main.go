package main

import (
	"github.com/romainhaenni/numerai-cli/cmd"
	"github.com/romainhaenni/numerai-cli/pretty"
)

func main() {
	pretty.Setup()
	cmd.Execute()
}
