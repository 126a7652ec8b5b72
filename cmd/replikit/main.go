package main

import "github.com/vietddude/replikit/internal/cli"

func main() {
	cli.Execute()
}
