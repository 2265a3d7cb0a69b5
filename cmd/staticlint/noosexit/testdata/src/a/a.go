package main

import (
	"fmt"
	"os"
	sys "os"
)

func helper() {
	os.Exit(2)
}

func main() {
	defer fmt.Println("cleanup")

	if len(os.Args) > 3 {
		sys.Exit(3) // want "avoid using os.Exit in main.main"
	}

	func() {
		os.Exit(1) // want "avoid using os.Exit in main.main"
	}()

	helper()
	os.Exit(0) // want "avoid using os.Exit in main.main"
}
