// Command devtoken mints an access token for local testing against a
// server sharing the same JWT_SECRET.
//
//	devtoken -user 42 -role CUSTOMER
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

func main() {
	_ = godotenv.Load()

	user := flag.Uint64("user", 1, "user id placed in the sub claim")
	role := flag.String("role", middleware.RoleCustomer, "CUSTOMER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}
	r := strings.ToUpper(*role)
	if r != middleware.RoleCustomer && r != middleware.RoleAdmin {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	tok, err := utils.NewAccessToken(secret, *user, r, *ttl, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
