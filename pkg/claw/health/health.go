// Package health implements the container health probe used by the
// compose health check.
package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kr8tiv/claw/pkg/claw/runtimeconfig"
)

// TokenEnv is read when no token is passed explicitly.
const TokenEnv = "OPENCLAW_GATEWAY_TOKEN"

// MinTokenLength is the shortest gateway token accepted as healthy.
const MinTokenLength = 16

var (
	ErrTokenInvalid  = errors.New("health: gateway token missing or too short")
	ErrConfigMissing = errors.New("health: config path missing")
	ErrConfigInvalid = errors.New("health: invalid config")
)

// Options configures one probe.
type Options struct {
	// Token is the gateway token; blank falls back to $OPENCLAW_GATEWAY_TOKEN.
	Token string

	// ConfigPath, when set, must point at a readable JSON document.
	ConfigPath string

	// Strict additionally validates the config against the runtime schema.
	Strict bool
}

// ResolveToken returns the trimmed flag value or the trimmed environment
// fallback.
func ResolveToken(flag string) string {
	if t := strings.TrimSpace(flag); t != "" {
		return t
	}
	return strings.TrimSpace(os.Getenv(TokenEnv))
}

// Check runs the probe and returns nil when healthy.
func Check(opts Options) error {
	if len(ResolveToken(opts.Token)) < MinTokenLength {
		return ErrTokenInvalid
	}

	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w (%s)", ErrConfigMissing, path)
		}
		return fmt.Errorf("health: reading config %s: %w", path, err)
	}
	if opts.Strict {
		if err := runtimeconfig.ValidateDocument(data); err != nil {
			return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s is not valid JSON", ErrConfigInvalid, path)
	}
	return nil
}
