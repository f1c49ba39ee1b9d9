package main

import "github.com/equiscan/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
