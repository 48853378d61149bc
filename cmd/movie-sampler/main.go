package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	cmd "github.com/rohmanhakim/movie-sampler/internal/cli"
)

func main() {
	// A .env file is optional; MOVIE_SAMPLER_* variables may come from the shell.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %s\n", err)
		os.Exit(1)
	}
	cmd.Execute()
}
