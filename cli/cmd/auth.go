package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cliconfig "github.com/fluxbase-eu/pakto/cli/config"
	"github.com/fluxbase-eu/pakto/cli/util"
)

var (
	authRegistry string
	authToken    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a registry token in the system keychain",
	Long: `Store an npm registry token in the system keychain. The token is sent
as a bearer token to the registry it was stored for. npm.auth_token in
pakto.toml or PAKTO_NPM_AUTH_TOKEN take precedence.

Examples:
  pakto login
  echo "$NPM_TOKEN" | pakto login --registry https://npm.example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := registryFlag()
		token := authToken
		if token == "" {
			var err error
			token, err = util.ReadToken(fmt.Sprintf("Token for %s: ", cliconfig.RegistryKey(registry)))
			if err != nil {
				return err
			}
		}
		if token == "" {
			return fmt.Errorf("no token given")
		}
		if err := keychain.Save(registry, token); err != nil {
			return err
		}
		formatter.Message("Stored token %s for %s", util.MaskToken(token), cliconfig.RegistryKey(registry))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove a stored registry token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := registryFlag()
		if err := keychain.Delete(registry); err != nil {
			return err
		}
		formatter.Message("Removed token for %s", cliconfig.RegistryKey(registry))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, logoutCmd} {
		c.Flags().StringVar(&authRegistry, "registry", "", "registry URL (default from npm.registry)")
	}
	loginCmd.Flags().StringVar(&authToken, "token", "", "token to store (read from stdin when omitted)")
}

func registryFlag() string {
	if authRegistry != "" {
		return authRegistry
	}
	return cfg.NPM.Registry
}
