package main

import (
	"github.com/KaramelBytes/tabloom-cli/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// Variables from a .env file in the working directory; real env wins.
	_ = godotenv.Load()
	cmd.Execute()
}
