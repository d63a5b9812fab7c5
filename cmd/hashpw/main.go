// Command hashpw prints the bcrypt hash to put in ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hashpw 'the admin password'
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/iliyamo/festival-booking/internal/utils"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		log.Fatalf("usage: %s <password>", os.Args[0])
	}
	cost := 12
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid int for BCRYPT_COST: %q", v)
		}
		cost = n
	}
	hash, err := utils.HashPassword(os.Args[1], cost)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}
