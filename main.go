package main

import "github.com/encodeous/edgeflow/cmd"

func main() {
	cmd.Execute()
}
