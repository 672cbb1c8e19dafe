// Command devtoken prints a bearer token for a user id, signed with JWT_SECRET.
//
//	devtoken -user 64b7f0c2e1 [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/config"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	user := flag.String("user", "", "user id to put in the token subject")
	ttl := flag.Duration("ttl", cfg.JWTTTL, "token lifetime")
	flag.Parse()

	if *user == "" {
		flag.Usage()
		os.Exit(2)
	}
	tok, err := auth.NewTokens(cfg.JWTSecret, *ttl).Issue(*user)
	if err != nil {
		log.Fatalf("issue: %v", err)
	}
	fmt.Println(tok)
}
