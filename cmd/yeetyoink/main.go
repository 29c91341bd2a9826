// Command yeetyoink runs the yeet/yoink ephemeral file relay.
package main

import (
	"fmt"
	"os"

	"github.com/yeet-yoink/yeet-yoink/cmd/yeetyoink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
