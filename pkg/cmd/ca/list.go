package ca

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	listRevoked bool
)

func init() {
	ListCmd.PersistentFlags().BoolVar(&listRevoked, "revoked", false, "List only revoked certificates")
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists issued certificates",
	Long:  `Prints the certificate index: serial number, expiration, status and subject.`,
	Run: func(cmd *cobra.Command, args []string) {

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}

		for _, entry := range App.CertStore.Entries() {
			status := "V"
			if entry.IsRevoked() {
				status = "R"
			} else if listRevoked {
				continue
			}
			cmd.Printf("%s\t%s\t%s\t%s\n",
				status,
				entry.NotAfter.UTC().Format(time.RFC3339),
				entry.Serial,
				entry.Subject)
		}
	},
}
