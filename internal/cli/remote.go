package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/internal/remote"
	"github.com/banddepth/banddepth/pkg/depthv1"
)

type remoteOptions struct {
	cfg    remote.Config
	format string
}

func (o *remoteOptions) dial(ctx context.Context) (*remote.Client, error) {
	if err := checkFormat(o.format); err != nil {
		return nil, err
	}
	return remote.Dial(ctx, o.cfg)
}

func newRemoteCmd() *cobra.Command {
	o := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Group commands for a running depthd",
		Long:  `The 'remote' command groups subcommands that call a depthd gRPC endpoint. It performs no action on its own.`,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&o.cfg.Endpoint, "endpoint", "localhost:50051", "depthd gRPC address")
	pf.StringVar(&o.cfg.Auth.Mode, "auth", "none", "auth mode: none|apikey|jwt|mtls")
	pf.StringVar(&o.cfg.Auth.Header, "header", "", "API key metadata key (default x-api-key)")
	pf.StringVar(&o.cfg.Auth.KeyEnv, "key-env", "DEPTHD_API_KEY", "environment variable holding the API key or bearer token")
	pf.StringVar(&o.cfg.Auth.CertFile, "cert", "", "client certificate for mtls")
	pf.StringVar(&o.cfg.Auth.KeyFile, "key", "", "client key for mtls")
	pf.StringVar(&o.cfg.Auth.CAFile, "ca", "", "CA bundle for mtls")
	pf.DurationVar(&o.cfg.CallTimeout, "timeout", 30*time.Second, "per-attempt timeout")
	pf.IntVar(&o.cfg.Attempts, "attempts", 4, "attempts per call on transient errors")
	pf.StringVarP(&o.format, "output", "o", formatTable, "output format: table|json")

	cmd.AddCommand(newRemoteQueryCmd(o), newRemoteListCmd(o), newRemotePutCmd(o))
	return cmd
}

func newRemoteQueryCmd(o *remoteOptions) *cobra.Command {
	var ensembleID, queryFile string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Score query curves against a remote ensemble",
		Long:  `The 'query' subcommand sends the curves in --query to depthd and prints their depth relative to --ensemble.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			curves, err := ensemble.ReadCurves(queryFile)
			if err != nil {
				return err
			}
			c, err := o.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Query(cmd.Context(), &depthv1.QueryRequest{EnsembleID: ensembleID, Curves: curves})
			if err != nil {
				return fmt.Errorf("query %s: %w", ensembleID, err)
			}
			return writeDepths(cmd.OutOrStdout(), o.format, resp)
		},
	}
	cmd.Flags().StringVarP(&ensembleID, "ensemble", "e", "", "ensemble ID (required)")
	cmd.Flags().StringVarP(&queryFile, "query", "q", "", "file holding the curves to score (required)")
	_ = cmd.MarkFlagRequired("ensemble")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newRemoteListCmd(o *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List remote ensembles",
		Long:  `The 'list' subcommand prints every live ensemble depthd holds.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.ListEnsembles(cmd.Context())
			if err != nil {
				return fmt.Errorf("list ensembles: %w", err)
			}
			return writeEnsembles(cmd.OutOrStdout(), o.format, resp.Ensembles)
		},
	}
}

func newRemotePutCmd(o *remoteOptions) *cobra.Command {
	var id, file, strategy string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Upload an ensemble file",
		Long:  `The 'put' subcommand uploads the curves in --file to depthd under --id, replacing any unpinned ensemble of that name.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			curves, err := ensemble.ReadCurves(file)
			if err != nil {
				return err
			}
			c, err := o.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.PutEnsemble(cmd.Context(), &depthv1.PutEnsembleRequest{
				EnsembleID: id,
				Curves:     curves,
				Strategy:   strategy,
			})
			if err != nil {
				return fmt.Errorf("put %s: %w", id, err)
			}
			return writeEnsembles(cmd.OutOrStdout(), o.format, []depthv1.EnsembleInfo{resp.Ensemble})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "ensemble ID (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "ensemble file (required)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "rank counting strategy, empty for the server default")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
