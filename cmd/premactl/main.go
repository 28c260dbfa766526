package main

import "prema-client/cmd"

func main() {
	cmd.Execute()
}
