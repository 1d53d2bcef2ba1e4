package main

import "github.com/okuznetsov/foldpack/cmd/foldpack-runner/cmd"

func main() {
	cmd.Execute()
}
