package main

import (
	"os"

	"github.com/joho/godotenv"

	"harborcal/internal/cli"
)

func main() {
	// Local runs keep credentials and company settings in a .env file;
	// missing files are fine.
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}
