package main

import "github.com/studio0rpiment/wayside/cmd"

func main() {
	cmd.Execute()
}
