package main

import "github.com/MrEthical07/trackauth/cmd/trackauth/cmd"

func main() {
	cmd.Execute()
}
