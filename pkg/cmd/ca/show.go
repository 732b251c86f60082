package ca

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/spf13/cobra"
)

var (
	showPEM bool
)

func init() {
	ShowCmd.PersistentFlags().BoolVar(&showPEM, "pem", false, "Display the x509 certificate in PEM form")
}

var ShowCmd = &cobra.Command{
	Use:   "show [serial]",
	Short: "Display an x509 certificate",
	Long: `Print the details of an issued certificate in human readable form.
Without a serial number, the Certificate Authority certificate is shown.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}

		var cert *ca.Certificate
		if len(args) == 0 {
			data, err := App.CertStore.CA()
			if err != nil {
				cmd.PrintErrln(err)
				return
			}
			cert, err = ca.CertificateFromPEM(data)
			if err != nil {
				cmd.PrintErrln(err)
				return
			}
		} else {
			cert, err = App.CertStore.Get(args[0])
			if err != nil {
				cmd.PrintErrln(err)
				return
			}
		}

		if showPEM {
			pem, err := cert.ToPEM()
			if err != nil {
				cmd.PrintErrln(err)
				return
			}
			cmd.Print(string(pem))
			return
		}

		text, err := certificateText(cert)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		cmd.Print(text)
	},
}

// Formats the certificate fields and extensions for display
func certificateText(cert *ca.Certificate) (string, error) {
	body, err := cert.ToX509()
	if err != nil {
		return "", err
	}
	issuer, err := ca.NameFromRawDER(body.RawIssuer)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Serial Number: %s\n", cert.SerialNumber)
	fmt.Fprintf(&sb, "Subject: %s\n", cert.DistinguishedName)
	fmt.Fprintf(&sb, "Issuer: %s\n", issuer)
	fmt.Fprintf(&sb, "Not Before: %s\n", body.NotBefore.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Not After: %s\n", body.NotAfter.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Signature Algorithm: %s\n", body.SignatureAlgorithm)
	if cert.IsRevoked() {
		fmt.Fprintf(&sb, "Revoked: %s\n", cert.RevokedAt.UTC().Format(time.RFC3339))
	}
	sb.WriteString("Extensions:\n")
	for _, ext := range body.Extensions {
		critical := ""
		if ext.Critical {
			critical = " (critical)"
		}
		id, value, _, err := extensions.Describe(ext)
		if errors.Is(err, extensions.ErrUnknownExtension) {
			fmt.Fprintf(&sb, "  %s%s: %d bytes\n", ext.Id, critical, len(ext.Value))
			continue
		}
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "  %s%s: %s\n", id, critical, value)
	}
	return sb.String(), nil
}
