package main

import "groupsnap-backend/cmd"

func main() {
	cmd.Run()
}
