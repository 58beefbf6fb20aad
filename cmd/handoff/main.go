package main

import (
	"log"

	"github.com/MrSnakeDoc/handoff/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ handoff failed to start: %v", err)
	}
}
