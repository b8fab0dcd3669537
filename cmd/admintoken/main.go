// backend/cmd/admintoken/main.go
// Prints an HS256 admin token signed with the configured ADMIN_JWT_SECRET.
//
// Usage:
//
//	go run ./cmd/admintoken -ttl 720h
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gewnthar/lottometeo/backend/config"
	"github.com/gewnthar/lottometeo/backend/handlers"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("load config:", err)
	}
	if cfg.Admin.JWTSecret == "" {
		log.Fatal("ADMIN_JWT_SECRET is not set")
	}

	token, err := handlers.IssueAdminToken([]byte(cfg.Admin.JWTSecret), *ttl, time.Now())
	if err != nil {
		log.Fatal("sign token:", err)
	}
	fmt.Println(token)
}
