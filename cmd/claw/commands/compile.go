package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/kr8tiv/claw/pkg/claw/compiler"
	"github.com/kr8tiv/claw/pkg/claw/compose"
	"github.com/kr8tiv/claw/pkg/claw/harness"
	"github.com/kr8tiv/claw/pkg/claw/paths"
)

// newValidateCmd creates `claw validate`.
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a harness spec and report every issue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			harnessPath, _ := cmd.Flags().GetString("harness")
			path := paths.ResolveHarnessPath(harnessPath)

			spec, err := harness.Load(path)
			var vErr *harness.ValidationError
			if errors.As(err, &vErr) {
				_ = printJSON(cmd.OutOrStdout(), map[string]any{
					"ok":     false,
					"path":   path,
					"issues": vErr.Issues,
				})
				return err
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"ok":     true,
				"path":   path,
				"tenant": spec.Tenant.Slug,
			})
		},
	}
	cmd.Flags().String("harness", "", "harness spec file (YAML or JSON)")
	return cmd
}

// newCompileCmd creates `claw compile`.
func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a harness spec into workspace docs, openclaw.json and the skill manifest",
		Long: `Compile a harness spec for one tenant and write the artifact bundle.

A tenant id is derived from --tenant (or the harness's slug) plus a random
8-character hex suffix. Pass --tenant-id to reuse an existing id instead.

Examples:
  claw compile --harness harness.yaml --out ./out --tenant acme-support
  claw compile --harness harness.yaml --tenant-id acme-support-1234abcd`,
		RunE: runCompile,
	}
	cmd.Flags().String("harness", "", "harness spec file (YAML or JSON)")
	cmd.Flags().String("out", "", "output directory (default <state>/tenants/<tenant-id>)")
	cmd.Flags().String("tenant", "", "tenant slug used to derive the tenant id")
	cmd.Flags().String("tenant-id", "", "use this tenant id verbatim")
	return cmd
}

func runCompile(cmd *cobra.Command, _ []string) error {
	harnessPath, _ := cmd.Flags().GetString("harness")
	out, _ := cmd.Flags().GetString("out")
	slug, _ := cmd.Flags().GetString("tenant")
	tenantID, _ := cmd.Flags().GetString("tenant-id")

	w := compiler.NewWriter(newLogger(cmd))
	artifacts, err := w.Run(compiler.Job{
		HarnessPath: paths.ResolveHarnessPath(harnessPath),
		OutDir:      out,
		TenantSlug:  slug,
		TenantID:    tenantID,
	})
	if err != nil {
		return err
	}

	fingerprint, err := artifacts.Fingerprint()
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"ok":           true,
		"tenantId":     artifacts.TenantID,
		"containerTag": artifacts.ContainerTag,
		"outDir":       paths.ResolveOutDir(out, artifacts.TenantID),
		"fingerprint":  fingerprint,
	})
}

// newComposeCmd creates `claw compose`.
func newComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compile a harness and write a docker-compose template for the tenant",
		Long: `Compile a harness spec under an existing tenant id and write the
artifact bundle plus docker-compose.tenant.yml.

Examples:
  claw compose --harness harness.yaml --out ./out --tenant acme-support-1234abcd
  claw compose --harness harness.yaml --out ./out --tenant acme-support-1234abcd --watchdog`,
		RunE: runCompose,
	}
	cmd.Flags().String("harness", "", "harness spec file (YAML or JSON)")
	cmd.Flags().String("out", "", "output directory (default <state>/tenants/<tenant>)")
	cmd.Flags().String("tenant", "", "tenant id, used verbatim")
	cmd.Flags().Bool("watchdog", false, "add the heartbeat watchdog service")
	cmd.Flags().String("gateway-image", compose.GatewayImage, "gateway container image")
	cmd.Flags().String("watchdog-image", compose.WatchdogImage, "watchdog container image")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func runCompose(cmd *cobra.Command, _ []string) error {
	harnessPath, _ := cmd.Flags().GetString("harness")
	out, _ := cmd.Flags().GetString("out")
	tenantID, _ := cmd.Flags().GetString("tenant")
	watchdog, _ := cmd.Flags().GetBool("watchdog")
	gatewayImage, _ := cmd.Flags().GetString("gateway-image")
	watchdogImage, _ := cmd.Flags().GetString("watchdog-image")

	spec, err := harness.Load(paths.ResolveHarnessPath(harnessPath))
	if err != nil {
		return err
	}
	tenantID, err = compiler.ResolveTenantID(spec, compiler.Job{TenantID: tenantID})
	if err != nil {
		return err
	}
	artifacts, err := compiler.Compile(spec, tenantID)
	if err != nil {
		return err
	}

	text, err := compose.Build(spec, compose.Options{
		TenantID:        artifacts.TenantID,
		ContainerTag:    artifacts.ContainerTag,
		IncludeWatchdog: watchdog,
		GatewayImage:    gatewayImage,
		WatchdogImage:   watchdogImage,
	})
	if err != nil {
		return err
	}

	outDir := paths.ResolveOutDir(out, artifacts.TenantID)
	w := compiler.NewWriter(newLogger(cmd))
	if err := w.WriteArtifacts(outDir, artifacts); err != nil {
		return err
	}
	if err := w.WriteCompose(outDir, text); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), map[string]any{
		"ok":              true,
		"tenantId":        artifacts.TenantID,
		"outDir":          outDir,
		"includeWatchdog": watchdog,
	})
}
