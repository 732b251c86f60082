package ca

import (
	"github.com/jeremyhahn/go-certificate-authority/pkg/app"
	"github.com/jeremyhahn/go-certificate-authority/pkg/platform/prompt"
	"github.com/spf13/cobra"
)

var InfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display information about the Certificate Authority",
	Long: `Displays the home directory, key storage, issued certificate counts
and the current CRL number of the Certificate Authority.`,
	Run: func(cmd *cobra.Command, args []string) {

		prompt.PrintBanner(cmd.OutOrStdout(), app.Version)

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}

		cmd.Printf("Home: %s\n", App.Config.Home)
		cmd.Printf("Initialized: %t\n", App.CertStore.HasCA())

		keyStorage := "memory"
		if App.Config.HasPKCS11() {
			keyStorage = "pkcs11:" + App.Config.PKCS11.TokenLabel
		}
		cmd.Printf("Key Storage: %s\n", keyStorage)

		issued, revoked := 0, 0
		for _, entry := range App.CertStore.Entries() {
			issued++
			if entry.IsRevoked() {
				revoked++
			}
		}
		cmd.Printf("Issued: %d\n", issued)
		cmd.Printf("Revoked: %d\n", revoked)
		cmd.Printf("CRL Number: %s\n", App.CertStore.CRLNumber())
	},
}
