package main

import "github.com/kozaktomas/photo-index/cmd"

func main() {
	cmd.Execute()
}
