package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/af-corp/taskmind/internal/config"
	"github.com/af-corp/taskmind/internal/platform"
)

func main() {
	uid := flag.String("uid", "", "user ID to mint a token for (required)")
	credentials := flag.String("credentials", "", "service account JSON file (overrides env)")
	project := flag.String("project", "", "Firebase project ID (overrides env)")
	claims := flag.String("claims", "", "comma-separated key=value developer claims")
	flag.Parse()

	if *uid == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -uid is required")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg := config.FirebaseConfig{
		ProjectID:        flagOrEnv(*project, "TASKMIND_FIREBASE_PROJECT_ID"),
		CredentialsFile:  flagOrEnv(*credentials, "GOOGLE_APPLICATION_CREDENTIALS"),
		AuthEmulatorHost: os.Getenv("FIREBASE_AUTH_EMULATOR_HOST"),
	}

	devClaims, err := parseClaims(*claims)
	if err != nil {
		log.Fatalf("invalid claims: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	app, err := platform.NewFirebaseApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialise firebase: %v", err)
	}
	client, err := platform.NewAuthClient(ctx, app)
	if err != nil {
		log.Fatalf("failed to initialise firebase auth: %v", err)
	}

	var token string
	if len(devClaims) > 0 {
		token, err = client.CustomTokenWithClaims(ctx, *uid, devClaims)
	} else {
		token, err = client.CustomToken(ctx, *uid)
	}
	if err != nil {
		log.Fatalf("failed to mint custom token: %v", err)
	}

	fmt.Println("=== Firebase Custom Token ===")
	fmt.Println()
	fmt.Printf("  UID:      %s\n", *uid)
	if cfg.ProjectID != "" {
		fmt.Printf("  Project:  %s\n", cfg.ProjectID)
	}
	if cfg.AuthEmulatorHost != "" {
		fmt.Printf("  Emulator: %s\n", cfg.AuthEmulatorHost)
	}
	fmt.Println()
	fmt.Println("  Exchange it for an ID token via signInWithCustomToken, then call")
	fmt.Println("  the task endpoints with 'Authorization: Bearer <id token>'.")
	fmt.Println()
	fmt.Printf("  %s\n", token)
	fmt.Println()
	fmt.Println("=============================")
}

func parseClaims(s string) (map[string]interface{}, error) {
	claims := make(map[string]interface{})
	if s == "" {
		return claims, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		claims[k] = strings.TrimSpace(v)
	}
	return claims, nil
}

func flagOrEnv(flagValue, key string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(key)
}
