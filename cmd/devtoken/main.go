package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
)

func main() {
	log.SetFlags(0)
	var (
		secret = flag.String("secret", os.Getenv("MIABE_AUTH_SECRET"), "HMAC secret shared with the API")
		issuer = flag.String("issuer", os.Getenv("MIABE_AUTH_ISSUER"), "token issuer")
		user   = flag.String("user", "", "user UUID (default: random)")
		email  = flag.String("email", "", "email claim")
		name   = flag.String("name", "", "display name claim")
		ttl    = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	signer, err := auth.NewSigner(*secret, *issuer)
	if err != nil {
		log.Fatalf("signer: %v", err)
	}
	if *user == "" {
		*user = uuid.NewString()
	}
	token, err := signer.Issue(auth.Identity{UserID: *user, Email: *email, Name: *name}, *ttl)
	if err != nil {
		log.Fatalf("issue: %v", err)
	}
	fmt.Fprintf(os.Stderr, "user %s\n", *user)
	fmt.Println(token)
}
