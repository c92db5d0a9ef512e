package main

import "github.com/Yates-Labs/ragchat/cmd"

func main() {
	cmd.Execute()
}
