package main

import "github.com/okuznetsov/foldpack/cmd/foldpack-recipe/cmd"

func main() {
	cmd.Execute()
}
