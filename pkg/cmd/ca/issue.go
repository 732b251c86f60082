package ca

import (
	"github.com/spf13/cobra"
)

var IssueCmd = &cobra.Command{
	Use:   "issue [cn]",
	Short: "Issues a new x509 Certificate",
	Long: `Generates a key pair and issues a certificate for it from the
Certificate Authority. The certificate and private key are printed in
PEM form.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

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

		sans, err := parseSANs()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		cert, keyPEM, err := App.Issue(subject, sans, Profile)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		pem, err := cert.ToPEM()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		cmd.Print(string(pem))
		cmd.Print(string(keyPEM))
	},
}
