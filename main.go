package main

import "jog-pendant/cmd"

func main() {
	cmd.Execute()
}
