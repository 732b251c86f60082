package ca

import (
	"github.com/spf13/cobra"
)

var RevokeCmd = &cobra.Command{
	Use:   "revoke [serial]",
	Short: "Revokes an issued certificate",
	Long: `Marks the certificate with the given hex serial number as revoked in
the certificate index. The revocation is published by the next "crl" and
reported by "ocsp" right away.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}

		if err := App.Revoke(args[0]); err != nil {
			cmd.PrintErrln(err)
			return
		}

		cmd.Printf("Certificate %s revoked\n", args[0])
	},
}
