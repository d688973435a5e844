package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kr8tiv/claw/pkg/claw/backoff"
	"github.com/kr8tiv/claw/pkg/claw/harness"
	"github.com/kr8tiv/claw/pkg/claw/memory"
	"github.com/kr8tiv/claw/pkg/claw/paths"
	"github.com/kr8tiv/claw/pkg/claw/secrets"
	"github.com/kr8tiv/claw/pkg/claw/tenant"
)

// newMemoryCmd creates `claw memory` and its subcommands.
func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Ingest into and query a tenant's memory container",
		Long: `Talk to the tenant's Supermemory container. Service settings (base URL,
API key variable, topK, threshold, namespace) come from the harness spec.

The API key is read from the OS keyring (service "kr8tiv-claw") or from the
environment variable named by supermemory.apiKeyEnv.

Examples:
  claw memory ingest --tenant-id acme-support-1234abcd --external-id Task/ABC-123 --content "..."
  claw memory search --tenant-id acme-support-1234abcd --query "refund policy"
  claw memory profile get --tenant-id acme-support-1234abcd --user-id user/123
  claw memory profile put --tenant-id acme-support-1234abcd --user-id user/123 --traits '{"tone":"formal"}'`,
	}

	pf := cmd.PersistentFlags()
	pf.String("harness", "", "harness spec file (YAML or JSON)")
	pf.String("tenant-id", "", "tenant id the container tag is derived from")
	pf.Duration("timeout", memory.DefaultTimeout, "per-request timeout")
	pf.Int("retries", 2, "retries for transient failures (timeouts, 429, 5xx)")
	_ = cmd.MarkPersistentFlagRequired("tenant-id")

	profile := &cobra.Command{
		Use:   "profile",
		Short: "Read or replace a user profile",
	}
	profile.AddCommand(newProfileGetCmd(), newProfilePutCmd())

	cmd.AddCommand(newMemoryIngestCmd(), newMemorySearchCmd(), profile)
	return cmd
}

// memorySession is the resolved context shared by memory subcommands.
type memorySession struct {
	spec         *harness.HarnessSpec
	tenantID     string
	containerTag string
	client       *memory.Client
	retries      int
}

func openMemorySession(cmd *cobra.Command) (*memorySession, error) {
	harnessPath, _ := cmd.Flags().GetString("harness")
	tenantID, _ := cmd.Flags().GetString("tenant-id")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	retries, _ := cmd.Flags().GetInt("retries")

	spec, err := harness.Load(paths.ResolveHarnessPath(harnessPath))
	if err != nil {
		return nil, err
	}
	tenantID = strings.TrimSpace(tenantID)
	if err := tenant.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	containerTag, err := tenant.ResolveContainerTag(spec, tenantID)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd)
	apiKey, source := secrets.Resolve(spec.Supermemory.APIKeyEnv, logger)
	if source == secrets.SourceNone {
		logger.Warn("memory API key not found", "env", spec.Supermemory.APIKeyEnv)
	}

	return &memorySession{
		spec:         spec,
		tenantID:     tenantID,
		containerTag: containerTag,
		retries:      max(retries, 0),
		client: memory.NewClient(memory.Config{
			BaseURL: spec.Supermemory.BaseURL,
			APIKey:  apiKey,
			Timeout: timeout,
			Logger:  logger,
		}),
	}, nil
}

// do runs fn with exponential backoff on retryable network errors.
func (s *memorySession) do(ctx context.Context, fn func(context.Context) error) error {
	return backoff.Retry(ctx, backoff.New(), s.retries, retryable, fn)
}

func retryable(err error) bool {
	var netErr *memory.NetworkError
	return errors.As(err, &netErr) && netErr.Retryable()
}

func newMemoryIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a document under its deterministic custom id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openMemorySession(cmd)
			if err != nil {
				return err
			}
			externalID, _ := cmd.Flags().GetString("external-id")
			content, _ := cmd.Flags().GetString("content")
			file, _ := cmd.Flags().GetString("file")
			source, _ := cmd.Flags().GetString("source")
			namespace, _ := cmd.Flags().GetString("namespace")
			userID, _ := cmd.Flags().GetString("user-id")

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("reading %s: %w", file, err)
				}
				content = string(data)
			}
			if strings.TrimSpace(content) == "" {
				return errors.New("nothing to ingest: pass --content or --file")
			}
			if namespace == "" {
				namespace = s.spec.MemoryIngestion.MetadataNamespace
			}

			var resp memory.Response
			err = s.do(cmd.Context(), func(ctx context.Context) error {
				var err error
				resp, err = s.client.IngestDocument(ctx, memory.IngestInput{
					TenantID:     s.tenantID,
					ContainerTag: s.containerTag,
					Namespace:    namespace,
					Source:       source,
					ExternalID:   externalID,
					Content:      content,
					UserID:       userID,
				})
				return err
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"ok":       true,
				"customId": memory.BuildCustomID(s.tenantID, namespace, externalID),
				"response": resp,
			})
		},
	}
	cmd.Flags().String("external-id", "", "caller's id for the fact; normalized into the custom id")
	cmd.Flags().String("content", "", "document text")
	cmd.Flags().String("file", "", "read document text from this file")
	cmd.Flags().String("source", "cli", "metadata source label")
	cmd.Flags().String("namespace", "", "metadata namespace (default memoryIngestion.metadataNamespace)")
	cmd.Flags().String("user-id", "", "optional end-user id")
	_ = cmd.MarkFlagRequired("external-id")
	return cmd
}

func newMemorySearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a hybrid search and print deduplicated passages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openMemorySession(cmd)
			if err != nil {
				return err
			}
			query, _ := cmd.Flags().GetString("query")
			userID, _ := cmd.Flags().GetString("user-id")
			raw, _ := cmd.Flags().GetBool("raw")

			topK := s.spec.Supermemory.TopK
			if cmd.Flags().Changed("top-k") {
				topK, _ = cmd.Flags().GetInt("top-k")
			}
			threshold := s.spec.Supermemory.Threshold
			if cmd.Flags().Changed("threshold") {
				threshold, _ = cmd.Flags().GetFloat64("threshold")
			}

			if raw {
				var resp memory.Response
				err := s.do(cmd.Context(), func(ctx context.Context) error {
					var err error
					resp, err = s.client.Search(ctx, memory.SearchInput{
						Query: query, ContainerTag: s.containerTag, Threshold: threshold, TopK: topK, UserID: userID,
					})
					return err
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}

			var passages []string
			err = s.do(cmd.Context(), func(ctx context.Context) error {
				var err error
				passages, err = memory.RetrieveHybridContext(ctx, s.client, memory.RetrievalRequest{
					Query: query, ContainerTag: s.containerTag, Threshold: threshold, TopK: topK, UserID: userID,
				})
				return err
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"containerTag": s.containerTag,
				"passages":     passages,
			})
		},
	}
	cmd.Flags().String("query", "", "search query")
	cmd.Flags().String("user-id", "", "restrict to one end user")
	cmd.Flags().Int("top-k", harness.DefaultTopK, "maximum passages (default supermemory.topK)")
	cmd.Flags().Float64("threshold", harness.DefaultThreshold, "similarity threshold (default supermemory.threshold)")
	cmd.Flags().Bool("raw", false, "print the raw service response")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newProfileGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read a user profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openMemorySession(cmd)
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetString("user-id")

			var resp memory.Response
			err = s.do(cmd.Context(), func(ctx context.Context) error {
				var err error
				resp, err = s.client.GetUserProfile(ctx, s.containerTag, userID)
				return err
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().String("user-id", "", "end-user id")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newProfilePutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Replace the traits of a user profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openMemorySession(cmd)
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetString("user-id")
			rawTraits, _ := cmd.Flags().GetString("traits")

			traits := map[string]any{}
			if err := json.Unmarshal([]byte(rawTraits), &traits); err != nil {
				return fmt.Errorf("--traits must be a JSON object: %w", err)
			}

			var resp memory.Response
			err = s.do(cmd.Context(), func(ctx context.Context) error {
				var err error
				resp, err = s.client.UpsertUserProfile(ctx, memory.ProfileInput{
					ContainerTag: s.containerTag,
					UserID:       userID,
					Traits:       traits,
				})
				return err
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().String("user-id", "", "end-user id")
	cmd.Flags().String("traits", "{}", "traits as a JSON object")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
