// Command demosite starts the scanner demo site.
// Usage: go run ./cmd/demosite [port]
// Default port: 9990
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/gdprscanner/gdprscan/internal/demosite"
)

func main() {
	cfg := demosite.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("GDPR Scanner demo site")
	fmt.Println("  /           a page that trips most compliance checks")
	fmt.Println("  /compliant  a page that passes them")
	fmt.Println()

	site := demosite.NewSite(cfg)
	if err := site.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
