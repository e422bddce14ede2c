// Command release-me releases the npm package in the current directory.
package main

import "github.com/papapumpkin/releaseme/cmd"

func main() {
	cmd.Execute()
}
