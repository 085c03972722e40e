// Command site-backend serves the electrician site's API: service catalog,
// status checks, and the contact form.
//
// @title       Site Backend API
// @version     1.0
// @description Service catalog, status checks and contact form for the electrician site.
// @BasePath    /api
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
