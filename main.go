package main

import "github.com/forecastd/forecastd/cmd"

func main() {
	cmd.Execute()
}
