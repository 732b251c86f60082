package ca

import (
	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/memory"
	"github.com/jeremyhahn/go-certificate-authority/pkg/platform/prompt"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	exportKey,
	exportOut,
	exportPassword string
)

func init() {
	ExportCmd.PersistentFlags().StringVar(&exportKey, "key", "", "PEM private key file of the certificate (required)")
	ExportCmd.PersistentFlags().StringVar(&exportOut, "out", "", "PKCS #12 output file (required)")
	ExportCmd.PersistentFlags().StringVar(&exportPassword, "password", "", "PKCS #12 password. Prompted for when not set")
	ExportCmd.MarkPersistentFlagRequired("key")
	ExportCmd.MarkPersistentFlagRequired("out")
}

var ExportCmd = &cobra.Command{
	Use:   "export [serial]",
	Short: "Exports a certificate and key as PKCS #12",
	Long: `Bundles an issued certificate, its private key and the Certificate
Authority certificate into a password protected PKCS #12 file.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}
		defer App.Close()

		cert, err := App.CertStore.Get(args[0])
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		keyPEM, err := afero.ReadFile(Fs, exportKey)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		km, err := memory.FromPEM(keyPEM, nil)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		cert.KeyMaterial = km

		caPEM, err := App.CertStore.CA()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		root, err := ca.CertificateFromPEM(caPEM)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		password := exportPassword
		if password == "" {
			entered, err := prompt.ExportPassword()
			if err != nil {
				cmd.PrintErrln(err)
				return
			}
			password = string(entered)
		}

		data, err := cert.ToPKCS12(password, root)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		if err := afero.WriteFile(Fs, exportOut, data, 0600); err != nil {
			cmd.PrintErrln(err)
			return
		}
		cmd.Printf("Certificate %s exported to %s\n", args[0], exportOut)
	},
}
