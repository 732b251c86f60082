package ca

import (
	"fmt"
	"net"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/app"
	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

var (
	App        *app.App
	Fs         afero.Fs
	InitParams *app.AppInitParams
	Profile,
	Subject,
	SubjectFile,
	SansDNS,
	SansIPs,
	SansEmails string
	err error
)

func init() {
	Fs = afero.NewOsFs()
	InitParams = &app.AppInitParams{}
}

// Loads the configuration and opens the certificate store
func initApp() error {
	App, err = app.NewApp(Fs).Init(InitParams)
	return err
}

// Returns the subject given by --subject, --subject-file or the common
// name argument, in that order.
func parseSubject(args []string) (*ca.DistinguishedName, error) {
	if Subject != "" {
		return ca.ParseName(Subject)
	}
	if SubjectFile != "" {
		data, err := afero.ReadFile(Fs, SubjectFile)
		if err != nil {
			return nil, err
		}
		dn := &ca.DistinguishedName{}
		if err := yaml.UnmarshalStrict(data, dn); err != nil {
			return nil, fmt.Errorf("%s: %w", SubjectFile, err)
		}
		return dn, nil
	}
	if len(args) > 0 && args[0] != "" {
		return &ca.DistinguishedName{CommonName: args[0]}, nil
	}
	return nil, ca.ErrNoSubject
}

// Returns the subject alternative names given by the --sans-* flags, or
// nil when none were given.
func parseSANs() (*extensions.SubjectAlternativeName, error) {
	san := extensions.NewSubjectAlternativeName()
	san.DNSNames = splitList(SansDNS)
	san.Emails = splitList(SansEmails)
	for _, ip := range splitList(SansIPs) {
		if net.ParseIP(ip) == nil {
			return nil, fmt.Errorf("invalid IP address: %s", ip)
		}
		san.IPs = append(san.IPs, ip)
	}
	if san.Empty() {
		return nil, nil
	}
	return san, nil
}

func splitList(list string) []string {
	values := make([]string, 0)
	for _, value := range strings.Split(list, ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values
}
