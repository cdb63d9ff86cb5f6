// yieldctl - command-line tools for the crop yield assistant
package main

import (
	"os"

	"github.com/ashureev/yieldchat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
