package main

import "github.com/KaramelBytes/pavecheck-cli/cmd"

func main() {
	cmd.Execute()
}
