// Package paths provides centralized path resolution for the claw CLI.
// State lives under ~/.kr8tiv-claw unless CLAW_STATE_DIR says otherwise;
// compiled bundles go to <state>/tenants/<tenant-id> by default.
package paths

import (
	"os"
	"path/filepath"
)

// AppName is the application name used for the state directory.
const AppName = "kr8tiv-claw"

// Environment overrides.
const (
	StateDirEnv    = "CLAW_STATE_DIR"
	OutDirEnv      = "CLAW_OUT_DIR"
	HarnessPathEnv = "CLAW_HARNESS_PATH"
)

// ResolveStateDir returns the state directory.
// Precedence: CLAW_STATE_DIR > ~/.kr8tiv-claw > . (no home directory)
func ResolveStateDir() string {
	if dir := os.Getenv(StateDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "."+AppName)
}

// ResolveTenantsDir returns the parent directory of per-tenant bundles.
// CLAW_OUT_DIR overrides <state>/tenants.
func ResolveTenantsDir() string {
	if dir := os.Getenv(OutDirEnv); dir != "" {
		return dir
	}
	return filepath.Join(ResolveStateDir(), "tenants")
}

// ResolveOutDir returns the output directory for one tenant. An explicit
// directory wins over the derived location.
func ResolveOutDir(explicit, tenantID string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(ResolveTenantsDir(), tenantID)
}

// ResolveHarnessPath returns the harness file to load.
// Precedence: explicit > CLAW_HARNESS_PATH > ./harness.{yaml,yml,json} >
// <state>/harness.yaml
func ResolveHarnessPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if path := os.Getenv(HarnessPathEnv); path != "" {
		return path
	}
	for _, p := range []string{"harness.yaml", "harness.yml", "harness.json"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(ResolveStateDir(), "harness.yaml")
}

// ResolveEnvFile returns the .env file to load: explicit, ./.env, or
// <state>/.env, whichever exists first. Empty means none was found.
func ResolveEnvFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, p := range []string{".env", filepath.Join(ResolveStateDir(), ".env")} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
