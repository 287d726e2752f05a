package main

import "mycelica/aka/cmd"

func main() {
	cmd.Execute()
}
