package main

import "rollfwd.dev/rollfwd/cmd"

func main() {
	cmd.Execute()
}
