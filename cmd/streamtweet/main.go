package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/streamtweet/backend/internal/app"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	ctx := context.Background()
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
