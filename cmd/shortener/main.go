// Command shortener serves the URL shortener over HTTP and, when enabled, as a Discord bot.
package main

import (
	"log"

	"github.com/patric-chuzhbe/linkshrt/internal/app"
)

func run() error {
	application, err := app.New()
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Run()
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
