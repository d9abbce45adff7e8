package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration settings for the application.
type Config struct {
	// Server settings
	ListenAddress string
	ListenPort    string

	// Storage settings (one JSON file per collection)
	ProblemsFilePath string
	UsersFilePath    string

	// Authentication settings
	Secret        string // Signs both session cookies and bearer tokens
	SecretFile    string // Path to the file containing the secret
	TokenLifetime time.Duration
	BcryptCost    int
}

const (
	defaultAddress       = "0.0.0.0"
	defaultPort          = "8080"
	defaultProblemsFile  = "./data/problems.json"
	defaultUsersFile     = "./data/users.json"
	defaultSecretFile    = ""              // No default file
	defaultKeyFile       = "./solveit.key" // Default file if we generate a secret
	defaultTokenLifetime = 24 * time.Hour
	defaultBcryptCost    = 12
)

// LoadConfig loads configuration from defaults, environment variables, and
// command-line flags. Flags take precedence over environment variables, which
// take precedence over defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// SOLVEIT_ prefix for environment variables to avoid conflicts.
	flag.StringVar(&cfg.ListenAddress, "address", getEnv("SOLVEIT_LISTEN_ADDRESS", defaultAddress), "Server listen address (Env: SOLVEIT_LISTEN_ADDRESS)")
	flag.StringVar(&cfg.ListenPort, "port", getEnv("SOLVEIT_LISTEN_PORT", defaultPort), "Server listen port (Env: SOLVEIT_LISTEN_PORT)")
	flag.StringVar(&cfg.ProblemsFilePath, "problems-file", getEnv("SOLVEIT_PROBLEMS_FILE", defaultProblemsFile), "Path to the problems JSON file (Env: SOLVEIT_PROBLEMS_FILE)")
	flag.StringVar(&cfg.UsersFilePath, "users-file", getEnv("SOLVEIT_USERS_FILE", defaultUsersFile), "Path to the users JSON file (Env: SOLVEIT_USERS_FILE)")
	flag.StringVar(&cfg.SecretFile, "secret-file", getEnv("SOLVEIT_SECRET_FILE", defaultSecretFile), "Path to file containing the signing secret (overrides SOLVEIT_SECRET env var) (Env: SOLVEIT_SECRET_FILE)")

	// Non-configurable defaults
	cfg.TokenLifetime = defaultTokenLifetime
	cfg.BcryptCost = defaultBcryptCost

	flag.Parse()

	// --- Secret Handling ---
	// Priority: File (CLI/Env) > Env Var > Default Key File > Generate
	var secretSource string

	// 1. Explicit secret file
	if cfg.SecretFile != "" {
		secretBytes, err := os.ReadFile(cfg.SecretFile)
		if err == nil {
			cfg.Secret = strings.TrimSpace(string(secretBytes))
			if cfg.Secret != "" {
				secretSource = fmt.Sprintf("File (%s)", cfg.SecretFile)
			} else {
				log.Printf("WARN: Specified secret file '%s' is empty or contains only whitespace. Ignoring.", cfg.SecretFile)
			}
		} else {
			log.Printf("WARN: Failed to read specified secret file '%s': %v. Checking other sources.", cfg.SecretFile, err)
		}
	}

	// 2. SOLVEIT_SECRET environment variable
	if cfg.Secret == "" {
		cfg.Secret = strings.TrimSpace(getEnv("SOLVEIT_SECRET", ""))
		if cfg.Secret != "" {
			secretSource = "Environment Variable (SOLVEIT_SECRET)"
		}
	}

	// 3. Default key file
	if cfg.Secret == "" {
		secretBytes, err := os.ReadFile(defaultKeyFile)
		if err == nil {
			cfg.Secret = strings.TrimSpace(string(secretBytes))
			if cfg.Secret != "" {
				secretSource = fmt.Sprintf("Default Key File (%s)", defaultKeyFile)
			} else {
				log.Printf("WARN: Default key file '%s' is empty or contains only whitespace. Will attempt generation.", defaultKeyFile)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("WARN: Failed to read default key file '%s': %v. Will attempt generation.", defaultKeyFile, err)
		}
	}

	// 4. Generate a secret and persist it for future runs
	if cfg.Secret == "" {
		log.Printf("INFO: No signing secret found via file, environment variable, or default key file. Generating a new one...")
		newSecret, err := generateRandomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing secret: %w", err)
		}
		cfg.Secret = newSecret

		if err := os.WriteFile(defaultKeyFile, []byte(newSecret), 0600); err != nil {
			log.Printf("WARN: Failed to save generated secret to '%s': %v. The server will use the generated secret for this session only.", defaultKeyFile, err)
			secretSource = "Generated (In Memory)"
		} else {
			secretSource = fmt.Sprintf("Generated & Saved (%s)", defaultKeyFile)
		}
	}

	if cfg.Secret == "" {
		return nil, fmt.Errorf("failed to obtain a valid signing secret after checking all sources and attempting generation")
	}

	// --- Storage Path Validation ---
	if err := resolveDataFile(&cfg.ProblemsFilePath, "problems-file"); err != nil {
		return nil, err
	}
	if err := resolveDataFile(&cfg.UsersFilePath, "users-file"); err != nil {
		return nil, err
	}

	logConfiguration(cfg, secretSource)

	return cfg, nil
}

// resolveDataFile makes a storage path absolute and rejects paths that point
// to an existing directory. A missing file is fine; the store creates it.
func resolveDataFile(path *string, flagName string) error {
	abs, err := filepath.Abs(*path)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for %s '%s': %w", flagName, *path, err)
	}
	*path = abs

	fileInfo, err := os.Stat(*path)
	if err == nil && fileInfo.IsDir() {
		return fmt.Errorf("%s path '%s' points to a directory, not a file", flagName, *path)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// logConfiguration prints the loaded configuration settings.
func logConfiguration(cfg *Config, secretSource string) {
	log.Println("--- Configuration ---")
	log.Printf("Server Address: %s", cfg.ListenAddress)
	log.Printf("Server Port: %s", cfg.ListenPort)
	log.Printf("Problems File: %s", cfg.ProblemsFilePath)
	log.Printf("Users File: %s", cfg.UsersFilePath)
	log.Printf("Signing Secret Source: %s", secretSource)
	log.Printf("Token Lifetime: %s", cfg.TokenLifetime)
	log.Printf("Bcrypt Cost: %d", cfg.BcryptCost)
	log.Println("---------------------")
}

// generateRandomKey generates a cryptographically secure random key of the
// specified byte length and returns it as a hex-encoded string.
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
