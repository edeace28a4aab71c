// Package main starts the tvloop command line application.
package main

import "github.com/tvloop/tvloop/pkg/cmd"

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
