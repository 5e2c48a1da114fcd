package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Generates a development access token whose claims match what the share
// server's principal middleware expects.
func main() {
	secret := flag.String("secret", "very-secure-jwt-secret", "Secret key for signing the token")
	issuer := flag.String("issuer", "simple-share", "Issuer of the token")
	userID := flag.String("user-id", "", "User id claim (uuid)")
	email := flag.String("email", "", "Email claim")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact or debug")
	flag.Parse()

	if *userID == "" || *email == "" {
		fmt.Fprintln(os.Stderr, "Error: -user-id and -email are required")
		os.Exit(1)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     *issuer,
		"sub":     *userID,
		"iat":     now.Unix(),
		"exp":     now.Add(*expiry).Unix(),
		"user_id": *userID,
		"email":   *email,
		"custom_claims": map[string]interface{}{
			"user_id": *userID,
			"email":   *email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "debug":
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Printf("Token: %s\n\nClaims:\n%s\n", tokenStr, claimsJSON)
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
