package main

import (
	"github.com/handiism/nupkg-downloader/internal/cli"
	"github.com/handiism/nupkg-downloader/internal/tui"
)

func main() {
	cli.Execute(tui.Frontend)
}
