package main

import "github.com/KaramelBytes/tabinsight/cmd"

func main() {
	cmd.Execute()
}
