package main

import "github.com/comet-ml/opik-sub003/cmd"

func main() {
	cmd.Execute()
}
