package main

import "mintfeed/cmd"

func main() {
	cmd.Execute()
}
