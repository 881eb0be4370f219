package main

import "github.com/maxbolgarin/gitb-install/cmd"

func main() {
	cmd.Execute()
}
