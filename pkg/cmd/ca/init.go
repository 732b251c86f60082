package ca

import (
	"github.com/jeremyhahn/go-certificate-authority/pkg/app"
	"github.com/jeremyhahn/go-certificate-authority/pkg/platform/prompt"
	"github.com/spf13/cobra"
)

var InitCmd = &cobra.Command{
	Use:   "init [cn]",
	Short: "Initialize the Certificate Authority",
	Long: `Creates the self-signed Certificate Authority certificate and key pair
and stores them in the CA home directory. The key pair is generated in
memory, or on the PKCS #11 token when one is configured.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		prompt.PrintBanner(cmd.OutOrStdout(), app.Version)

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}
		defer App.Close()

		subject, err := parseSubject(args)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		root, err := App.InitCA(subject, Profile)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		pem, err := root.ToPEM()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		cmd.Println("Certificate Authority successfully initialized")
		cmd.Print(string(pem))
	},
}
