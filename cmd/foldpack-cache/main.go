package main

import "github.com/okuznetsov/foldpack/cmd/foldpack-cache/cmd"

func main() {
	cmd.Execute()
}
