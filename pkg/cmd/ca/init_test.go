package ca

import (
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/store/certstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Init(t *testing.T) {

	setup(t)

	response := executeCommand(InitCmd, []string{"Test Root CA"})
	assert.Contains(t, response, "Certificate Authority successfully initialized")
	assert.Contains(t, response, "-----BEGIN CERTIFICATE")

	exists, err := afero.Exists(Fs, "/ca/ca.key")
	require.NoError(t, err)
	assert.True(t, exists)

	response = executeCommand(InitCmd, []string{"Test Root CA"})
	assert.Contains(t, response, certstore.ErrCAExists.Error())

	response = executeCommand(InfoCmd, nil)
	assert.Contains(t, response, "Initialized: true")
	assert.Contains(t, response, "Key Storage: memory")
}

func Test_InitSubjectFile(t *testing.T) {

	setup(t)

	subject := []byte("common_name: Subject File CA\norganization: Example\ncountry: US\n")
	require.NoError(t, afero.WriteFile(Fs, "/subject.yaml", subject, 0644))
	SubjectFile = "/subject.yaml"

	response := executeCommand(InitCmd, nil)
	require.Contains(t, response, "successfully initialized")

	SubjectFile = ""
	response = executeCommand(ShowCmd, nil)
	assert.Contains(t, response, "Subject: /C=US/O=Example/CN=Subject File CA")
	assert.Contains(t, response, "basicConstraints (critical): CA:true")

	require.NoError(t, afero.WriteFile(Fs, "/bogus.yaml", []byte("cn: bogus\n"), 0644))
	SubjectFile = "/bogus.yaml"
	response = executeCommand(IssueCmd, nil)
	assert.Contains(t, response, "/bogus.yaml")
}
