package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"tryon/internal/infra"
	"tryon/internal/infra/credentials"
)

// envKeys names the environment variable each provider's key falls back to.
var envKeys = map[string]string{
	credentials.ProviderGemini:      "GEMINI_API_KEY",
	credentials.ProviderHuggingFace: "HF_TOKEN",
}

func main() {
	_ = godotenv.Load()

	var (
		keyFlag      string
		providerFlag string
		deleteFlag   bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (falls back to the environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderGemini, "provider to configure (gemini or huggingface)")
	flag.BoolVar(&deleteFlag, "delete", false, "remove the stored key instead of setting it")
	flag.Parse()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if provider == "" {
		provider = credentials.ProviderGemini
	}
	if !credentials.Supported(provider) {
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" && !deleteFlag {
		key = strings.TrimSpace(os.Getenv(envKeys[provider]))
		if key == "" {
			fmt.Fprintf(os.Stderr, "%s key is required via -key or %s\n", provider, envKeys[provider])
			os.Exit(1)
		}
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", os.Getenv("LOG_LEVEL")).With().Str("cmd", "providerkey").Str("provider", provider).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if deleteFlag {
		if err := store.Delete(ctx, provider); err != nil {
			fmt.Fprintf(os.Stderr, "failed to delete %s key: %v\n", provider, err)
			os.Exit(1)
		}
		fmt.Printf("%s key deleted\n", provider)
		return
	}

	props := map[string]any{"source": "providerkey", "stored_at": time.Now().UTC().Format(time.RFC3339)}
	if err := store.Set(ctx, provider, key, props); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s key: %v\n", provider, err)
		os.Exit(1)
	}

	fmt.Printf("%s key stored successfully\n", provider)
}
