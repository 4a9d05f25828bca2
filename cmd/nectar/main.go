package main

import "github.com/thostetler/nectar-sub000/cmd/nectar/cmd"

func main() {
	cmd.Execute()
}
