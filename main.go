package main

import "github.com/grtinfo/grtinfo/cmd"

func main() {
	cmd.Execute()
}
