package main

import "github.com/probeat/beatgrid/cmd"

func main() {
	cmd.Execute()
}
