package ca

import (
	"github.com/spf13/cobra"
)

var CRLCmd = &cobra.Command{
	Use:   "crl",
	Short: "Generates a Certificate Revocation List",
	Long: `Signs a new Certificate Revocation List containing every revoked
certificate, saves it to the CA home directory and prints it in PEM form.`,
	Run: func(cmd *cobra.Command, args []string) {

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}
		defer App.Close()

		pem, err := App.GenerateCRL()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		cmd.Print(string(pem))
	},
}
