package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}
