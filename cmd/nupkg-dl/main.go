package main

import "github.com/handiism/nupkg-downloader/internal/cli"

func main() {
	cli.Execute(cli.Download)
}
