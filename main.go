package main

import (
	"github.com/JakeFAU/lockss-laaws/cmd"
)

func main() {
	cmd.Execute()
}
