package main

import "github.com/origins-network/sale-engine/cmd"

func main() {
	cmd.Execute()
}
