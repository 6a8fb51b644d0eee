package main

import "wallet-gas/cmd/gas-cli/cmd"

func main() {
	cmd.Execute()
}
