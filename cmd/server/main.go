package main

import (
	"log"

	transport "chirp/internal/transport/http"
)

func main() {
	if err := transport.Run(); err != nil {
		log.Fatalf("[Main] %v", err)
	}
}
