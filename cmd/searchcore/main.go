package main

import "github.com/mroidx/searchcore/cmd/handlers"

func main() {
	handlers.Execute()
}
