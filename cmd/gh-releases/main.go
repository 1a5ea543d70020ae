package main

import "github.com/oshokin/gh-releases/cmd/gh-releases/cmd"

func main() {
	cmd.Execute()
}
