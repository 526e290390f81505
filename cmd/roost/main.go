package main

import "github.com/roostapp/roost-go/cmd/roost/cmd"

func main() {
	cmd.Execute()
}
