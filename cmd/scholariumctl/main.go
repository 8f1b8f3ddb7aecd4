package main

import "github.com/xiebiao/scholarium/cmd/scholariumctl/cmd"

func main() {
	cmd.Execute()
}
