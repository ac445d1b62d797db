// Copyright (c) 2025 Kishore Bharat

// Package subcmds implements the chasebot command-line commands.
package subcmds

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kbharat/chasebot/server"

	"github.com/joho/godotenv"
)

// DataFlags are common flags for commands that need the data directory and
// the secrets file.
type DataFlags struct {
	dataDir     string
	secretsPath string
	envPath     string
}

func (f *DataFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&f.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&f.envPath, "env-file", "", "path to an optional .env file with credentials")
}

// DataDir resolves the data directory, creating it if necessary.
func (f *DataFlags) DataDir() (string, error) {
	if len(f.dataDir) == 0 {
		f.dataDir = filepath.Join(os.Getenv("HOME"), ".chasebot")
	}
	if _, err := os.Stat(f.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("could not stat data directory %q: %w", f.dataDir, err)
		}
		if err := os.MkdirAll(f.dataDir, 0700); err != nil {
			return "", fmt.Errorf("could not create data directory %q: %w", f.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(f.dataDir)
	if err != nil {
		return "", fmt.Errorf("could not determine data-dir %q absolute path: %w", f.dataDir, err)
	}
	f.dataDir = dataDir
	return dataDir, nil
}

// SecretsPath returns the secrets file location under the data directory.
func (f *DataFlags) SecretsPath() (string, error) {
	if len(f.secretsPath) != 0 {
		return f.secretsPath, nil
	}
	dataDir, err := f.DataDir()
	if err != nil {
		return "", err
	}
	f.secretsPath = filepath.Join(dataDir, "secrets.json")
	return f.secretsPath, nil
}

// Secrets loads credentials from the secrets file, falling back to the
// environment (optionally seeded from a .env file) when no file exists.
func (f *DataFlags) Secrets() (*server.Secrets, error) {
	if len(f.envPath) != 0 {
		if err := godotenv.Load(f.envPath); err != nil {
			return nil, fmt.Errorf("could not load env file %q: %w", f.envPath, err)
		}
	} else {
		_ = godotenv.Load() // .env in the working directory, if any
	}

	fpath, err := f.SecretsPath()
	if err != nil {
		return nil, err
	}
	secrets, err := server.SecretsFromFile(fpath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		secrets, err = server.SecretsFromEnv()
		if err != nil {
			return nil, fmt.Errorf("no secrets file at %q and no credentials in the environment: %w", fpath, err)
		}
	}
	if err := secrets.Check(); err != nil {
		return nil, err
	}
	return secrets, nil
}
