package ca

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var testConfig = []byte(`
home: /ca
key_size: 1024
profiles:
  server:
    extensions:
      extendedKeyUsage:
        usage: [serverAuth]
`)

func executeCommand(cmd *cobra.Command, args []string) string {

	b := new(bytes.Buffer)

	cmd.SetOut(b)
	cmd.SetErr(b)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		return err.Error()
	}

	response := b.String()
	fmt.Println(response)

	return response
}

// Resets the command globals and creates an empty CA home on an in-memory
// file system
func setup(t *testing.T) {
	Fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(Fs, "/config.yaml", testConfig, 0644))

	InitParams.ConfigFile = "/config.yaml"
	InitParams.KeyPassword = "test"
	Profile, Subject, SubjectFile = "", "", ""
	SansDNS, SansIPs, SansEmails = "", "", ""
	signSPKAC, showPEM, listRevoked = false, false, false
	ocspOut, ocspSerial = "", ""
	exportKey, exportOut, exportPassword = "", "", ""
}

func setupCA(t *testing.T) {
	setup(t)
	response := executeCommand(InitCmd, []string{"Test Root CA"})
	require.Contains(t, response, "successfully initialized")
}
