package main

import "soundboard/cmd"

func main() {
	cmd.Execute()
}
