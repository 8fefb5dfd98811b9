package main

import "github.com/hulugan-ph/hulugan/cmd"

func main() {
	cmd.Execute()
}
