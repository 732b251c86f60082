package ca

import (
	"encoding/base64"
	"errors"

	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ocsp"
)

var (
	ocspOut,
	ocspSerial string

	ErrOCSPRequestRequired = errors.New("an OCSP request file or --serial is required")
)

func init() {
	OCSPCmd.PersistentFlags().StringVar(&ocspOut, "out", "", "Write the DER encoded response to this file instead of printing it base64 encoded")
	OCSPCmd.PersistentFlags().StringVar(&ocspSerial, "serial", "", "Build the request for this issued certificate serial number")
}

var OCSPCmd = &cobra.Command{
	Use:   "ocsp [request-file]",
	Short: "Answers an OCSP request",
	Long: `Signs an OCSP response for a DER encoded OCSP request, answering from
the certificate index. With --serial, the request is built for the given
issued certificate.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}
		defer App.Close()

		request, err := ocspRequest(args)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		der, err := App.OCSPResponse(request)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		root, err := App.LoadCA()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		issuer, err := root.ToX509()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		response, err := ocsp.ParseResponse(der, issuer)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		cmd.Printf("%s: %s\n", response.SerialNumber.Text(16), ocspStatus(response.Status))

		if ocspOut != "" {
			if err := afero.WriteFile(Fs, ocspOut, der, 0644); err != nil {
				cmd.PrintErrln(err)
			}
			return
		}
		cmd.Println(base64.StdEncoding.EncodeToString(der))
	},
}

func ocspRequest(args []string) ([]byte, error) {
	if len(args) > 0 {
		return afero.ReadFile(Fs, args[0])
	}
	if ocspSerial == "" {
		return nil, ErrOCSPRequestRequired
	}
	root, err := App.LoadCA()
	if err != nil {
		return nil, err
	}
	cert, err := App.CertStore.Get(ocspSerial)
	if err != nil {
		return nil, err
	}
	return ca.NewOCSPRequest(root, cert)
}

func ocspStatus(status int) string {
	switch status {
	case ocsp.Good:
		return "good"
	case ocsp.Revoked:
		return "revoked"
	default:
		return "unknown"
	}
}
