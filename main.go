package main

import (
	"github.com/sw33tLie/kselect/cmd"
)

func main() {
	cmd.Execute()
}
