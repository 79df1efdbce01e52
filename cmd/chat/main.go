package main

import (
	"github.com/joho/godotenv"

	"chat-client/cli"
)

func main() {
	godotenv.Load()
	cli.Execute()
}
