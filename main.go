// Package main is the entry point for the coldstage CLI.
package main

import "coldstage.dev/pkg/coldstage/cmd"

func main() {
	cmd.Execute()
}
