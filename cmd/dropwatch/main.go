package main

import (
	"log"

	"github.com/MrSnakeDoc/dropwatch/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ dropwatch failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ dropwatch stopped with error: %v", err)
	}
}
