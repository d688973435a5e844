package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kr8tiv/claw/pkg/claw/harness"
	"github.com/kr8tiv/claw/pkg/claw/paths"
	"github.com/kr8tiv/claw/pkg/claw/runtimeconfig"
	"github.com/kr8tiv/claw/pkg/claw/skillhub"
)

// newSkillsCmd creates `claw skills`.
func newSkillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Inspect the skill packs declared by a harness",
	}
	cmd.AddCommand(newSkillsCheckCmd())
	return cmd
}

func newSkillsCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check declared ClawHub packs for existence and moderation flags",
		Long: `Resolve every pack whose source is "clawhub" or "clawhub:<slug>" against
the ClawHub registry and report missing, malware-blocked or suspicious packs.
Packs from other sources are listed as skipped.

Examples:
  claw skills check --harness harness.yaml
  claw skills check --harness harness.yaml --json`,
		RunE: runSkillsCheck,
	}
	cmd.Flags().String("harness", "", "harness spec file (YAML or JSON)")
	cmd.Flags().String("hub-url", skillhub.DefaultBaseURL, "ClawHub API base URL")
	cmd.Flags().Bool("json", false, "print results as JSON")
	return cmd
}

func runSkillsCheck(cmd *cobra.Command, _ []string) error {
	harnessPath, _ := cmd.Flags().GetString("harness")
	hubURL, _ := cmd.Flags().GetString("hub-url")
	asJSON, _ := cmd.Flags().GetBool("json")

	spec, err := harness.Load(paths.ResolveHarnessPath(harnessPath))
	if err != nil {
		return err
	}
	manifest := runtimeconfig.BuildSkillManifest(spec, spec.Tenant.Slug)

	client := skillhub.NewClient(skillhub.Config{BaseURL: hubURL, Logger: newLogger(cmd)})
	statuses, err := client.Verify(cmd.Context(), manifest.Packs)
	if err != nil {
		return err
	}

	failed := 0
	for _, st := range statuses {
		if !st.Healthy() {
			failed++
		}
	}

	if asJSON {
		if err := printJSON(cmd.OutOrStdout(), statuses); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PACK\tSOURCE\tVERSION\tSTATUS\tLATEST\tDETAIL")
		for i, st := range statuses {
			latest := st.Latest
			if st.UpdateAvailable {
				latest += " (update)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				st.Name, manifest.Packs[i].Source, st.Version, st.Status, latest, st.Detail)
		}
		w.Flush()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d skill pack(s) failed verification", failed, len(statuses))
	}
	return nil
}
