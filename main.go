// The main package for the clint-exporter executable.
package main

import "github.com/shortmidia/clint-exporter/cmd"

func main() {
	cmd.Execute()
}
