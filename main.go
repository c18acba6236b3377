package main

import "github.com/webmonhq/webmon/cmd"

func main() {
	cmd.Execute()
}
