package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"contactdesk/internal/servicetoken"
)

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "servicetoken",
		Short:        "Manage bearer tokens for the dispatch worker's internal routes",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newKeygenCmd(), newSignCmd())
	return root
}

func newKeygenCmd() *cobra.Command {
	var dir, name string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write a new RSA key pair as PEM files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			privatePath, publicPath, err := servicetoken.WriteKeyPair(dir, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\npublic key: %s\n", privatePath, publicPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "secrets/internal-jwt", "output directory")
	cmd.Flags().StringVar(&name, "name", "internal", "file name prefix")
	return cmd
}

func newSignCmd() *cobra.Command {
	var opts servicetoken.SignerOptions
	var audience, subject string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print a signed token for the given audience",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := servicetoken.NewSigner(opts)
			if err != nil {
				return err
			}
			token, err := signer.Sign(audience, subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.PrivateKeyPath, "key", "secrets/internal-jwt/internal-private.pem", "RSA private key (PEM)")
	cmd.Flags().StringVar(&opts.KeyID, "kid", servicetoken.DefaultKeyID, "key id placed in the token header")
	cmd.Flags().StringVar(&opts.Issuer, "issuer", servicetoken.DefaultIssuer, "token issuer")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 5*time.Minute, "token lifetime")
	cmd.Flags().StringVar(&audience, "audience", "dispatch", "token audience")
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (defaults to the issuer)")
	return cmd
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
