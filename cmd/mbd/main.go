// Command mbd scores curves by modified band depth from the command line.
package main

import "github.com/banddepth/banddepth/internal/cli"

func main() {
	cli.Execute()
}
