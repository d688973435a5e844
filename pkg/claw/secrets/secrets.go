// Package secrets resolves credentials such as the memory service API key.
//
// Priority for resolving a secret named by an environment variable:
//  1. OS keyring (service "kr8tiv-claw", user = the variable name)
//  2. Environment variable (optionally populated from a .env file)
package secrets

import (
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service is the OS keyring service name.
const Service = "kr8tiv-claw"

// Source tells where a secret was found.
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
	SourceNone    Source = "none"
)

// Store saves a secret to the OS keyring.
func Store(name, value string) error {
	return keyring.Set(Service, name, value)
}

// Delete removes a secret from the OS keyring.
func Delete(name string) error {
	return keyring.Delete(Service, name)
}

// KeyringAvailable checks whether the OS keyring accepts writes.
func KeyringAvailable() bool {
	const probe = "__kr8tiv_claw_probe__"
	if err := keyring.Set(Service, probe, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(Service, probe)
	return true
}

// Resolve looks name up in the keyring and then in the environment. Values
// are trimmed; an empty result comes back with SourceNone.
func Resolve(name string, logger *slog.Logger) (string, Source) {
	if logger == nil {
		logger = slog.Default()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", SourceNone
	}

	if val, err := keyring.Get(Service, name); err == nil && strings.TrimSpace(val) != "" {
		logger.Debug("secret loaded from OS keyring", "name", name)
		return strings.TrimSpace(val), SourceKeyring
	}
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		logger.Debug("secret loaded from environment", "name", name)
		return val, SourceEnv
	}
	return "", SourceNone
}
