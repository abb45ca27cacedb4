package main

import "github.com/photonest/photonestbackend/cmd"

func main() {
	cmd.Execute()
}
