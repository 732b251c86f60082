package cmd

import (
	cmdca "github.com/jeremyhahn/go-certificate-authority/pkg/cmd/ca"

	"github.com/spf13/cobra"
)

func init() {

	caCmd.PersistentFlags().StringVar(&cmdca.Profile, "profile", "", "Signing profile from the configuration file")
	caCmd.PersistentFlags().StringVar(&cmdca.Subject, "subject", "", "Certificate subject (ex: /C=US/O=Example/CN=example.com)")
	caCmd.PersistentFlags().StringVar(&cmdca.SubjectFile, "subject-file", "", "YAML file holding the certificate subject")
	caCmd.PersistentFlags().StringVar(&cmdca.SansDNS, "sans-dns", "", "Comma separated list of SANS DNS names (ex: domain1.com,domain2.com)")
	caCmd.PersistentFlags().StringVar(&cmdca.SansIPs, "sans-ips", "", "Comma separated list of SANS IP Addresses (ex: 1.2.3.4,5.6.7.8)")
	caCmd.PersistentFlags().StringVar(&cmdca.SansEmails, "sans-emails", "", "Comma separated list of SANS Email addresses (ex: me@domain1.com,me@domain2.com)")

	caCmd.AddCommand(cmdca.CRLCmd)
	caCmd.AddCommand(cmdca.ExportCmd)
	caCmd.AddCommand(cmdca.InfoCmd)
	caCmd.AddCommand(cmdca.InitCmd)
	caCmd.AddCommand(cmdca.IssueCmd)
	caCmd.AddCommand(cmdca.ListCmd)
	caCmd.AddCommand(cmdca.OCSPCmd)
	caCmd.AddCommand(cmdca.RevokeCmd)
	caCmd.AddCommand(cmdca.ShowCmd)
	caCmd.AddCommand(cmdca.SignCmd)
}

var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Certificate Authority",
	Long: `Create the Certificate Authority, issue and sign certificates, revoke
them and publish their status through CRLs and OCSP responses.`,
}
