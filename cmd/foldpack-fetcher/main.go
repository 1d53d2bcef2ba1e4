package main

import "github.com/okuznetsov/foldpack/cmd/foldpack-fetcher/cmd"

func main() {
	cmd.Execute()
}
