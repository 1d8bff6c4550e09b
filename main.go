package main

import "github.com/wkalt/tsjoin/cli/cmd"

func main() {
	cmd.Execute()
}
