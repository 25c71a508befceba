package main

import "github.com/inamate/draftview/cmd/draftview/cmd"

func main() {
	cmd.Execute()
}
