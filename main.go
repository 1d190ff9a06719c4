package main

import "github.com/NickRemizov/Padel-Galleries/cmd"

func main() {
	cmd.Execute()
}
