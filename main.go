package main

import "github.com/doors-os/sdkk/cmd"

func main() {
	cmd.Execute()
}
