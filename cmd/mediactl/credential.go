package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	skipValidation bool
	probeStatus    bool
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the Google API key",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set <api-key>",
	Short: "Validate and store the API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.CredentialService().Save(cmd.Context(), args[0], !skipValidation); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key saved to %s\n", c.Config().CredentialFile)
		return nil
	},
}

var credentialStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether an API key is configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		status := c.CredentialService().Status(cmd.Context(), probeStatus)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "configured: %t\n", status.Configured)
		if status.Valid != nil {
			fmt.Fprintf(out, "valid: %t\n", *status.Valid)
		}
		return nil
	},
}

var credentialValidateCmd = &cobra.Command{
	Use:   "validate <api-key>",
	Short: "Probe the provider with a key without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if !c.CredentialService().Validate(cmd.Context(), args[0]) {
			return fmt.Errorf("the provider rejected the API key")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key is valid")
		return nil
	},
}

func init() {
	credentialSetCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "store the key without checking it against the provider")
	credentialStatusCmd.Flags().BoolVar(&probeStatus, "validate", false, "also probe the provider with the stored key")

	credentialCmd.AddCommand(credentialSetCmd, credentialStatusCmd, credentialValidateCmd)
}
