package main

import "github.com/codewharf/snapmine/cmd"

func main() {
	cmd.Run()
}
