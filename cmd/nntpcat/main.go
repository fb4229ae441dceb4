package main

import "github.com/damianoneill/nntp/cmd/nntpcat/cmd"

func main() {
	cmd.Execute()
}
