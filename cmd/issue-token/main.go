// Command issue-token prints a signed access token for a player, for use by a
// game client or when exercising the API by hand.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/phrazzld/scry-cue/internal/config"
	"github.com/phrazzld/scry-cue/internal/service/auth"
)

func main() {
	userID := flag.String("user", "", "player ID to embed in the token (required)")
	configPath := flag.String("config", "", "path to a YAML config file (default: ./config.yaml if present)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := issueToken(context.Background(), cfg.Auth, *userID, os.Stdout); err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
}

// issueToken writes a signed token for userID followed by a newline.
func issueToken(ctx context.Context, cfg config.AuthConfig, userID string, w io.Writer) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user ID is required")
	}

	jwtService, err := auth.NewJWTService(cfg)
	if err != nil {
		return fmt.Errorf("create JWT service: %w", err)
	}

	token, err := jwtService.GenerateToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	_, err = fmt.Fprintln(w, token)
	return err
}
