// Command zenbankctl is the operator tool for zenbank account stores.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
