package main

import "github.com/nikosgri/sensornode/cmd"

func main() {
	cmd.Execute()
}
