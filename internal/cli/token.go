package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/banddepth/banddepth/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		secretEnv string
		subject   string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a jwt-mode depthd",
		Long: `The 'token' command signs an HS256 token with the secret held in
--secret-env. Pass it to 'mbd remote --auth jwt' through --key-env, or as an
"Authorization: Bearer" header to the REST API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv(secretEnv)
			if secret == "" {
				return fmt.Errorf("environment variable %s is empty", secretEnv)
			}
			token, err := auth.IssueToken([]byte(secret), subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&secretEnv, "secret-env", "DEPTHD_JWT_SECRET", "environment variable holding the signing secret")
	cmd.Flags().StringVar(&subject, "subject", "mbd", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
