package ca

import (
	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/request"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	signSPKAC bool
)

func init() {
	SignCmd.PersistentFlags().BoolVar(&signSPKAC, "spkac", false, "The request is a Netscape SPKAC instead of a PEM PKCS #10 request. Requires --subject or --subject-file")
}

var SignCmd = &cobra.Command{
	Use:   "sign [request-file]",
	Short: "Signs a certificate signing request",
	Long: `Issues a certificate for the public key in a PKCS #10 certificate
signing request or a Netscape SPKAC. SPKAC requests carry no subject, so one
must be given with --subject or --subject-file.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		if err := initApp(); err != nil {
			cmd.PrintErrln(err)
			return
		}
		defer App.Close()

		data, err := afero.ReadFile(Fs, args[0])
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		var req *ca.SigningRequest
		if signSPKAC {
			req, err = parseSPKAC(data)
		} else {
			req, err = ca.SigningRequestFromPEM(data)
		}
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		sans, err := parseSANs()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		if sans != nil {
			req.SetSubjectAlternativeNames(sans)
		}

		cert, err := App.SignRequest(req, Profile)
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
	},
}

func parseSPKAC(data []byte) (*ca.SigningRequest, error) {
	spkac, err := request.ParseSPKACBase64(string(data))
	if err != nil {
		return nil, err
	}
	subject, err := parseSubject(nil)
	if err != nil {
		return nil, err
	}
	return ca.SigningRequestFromSPKAC(spkac, subject)
}
