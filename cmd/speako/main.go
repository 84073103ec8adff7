package main

import "github.com/hmans/speako/cmd"

func main() {
	cmd.Execute()
}
