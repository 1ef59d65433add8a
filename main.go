package main

import "github.com/hqlauncher/hq-installer/cmd"

func main() {
	cmd.Execute()
}
