// Command mapctl renders and inspects map field documents from the shell.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
