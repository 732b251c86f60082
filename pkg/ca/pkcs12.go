package ca

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/memory"
	"software.sslmate.com/src/go-pkcs12"
)

// ToPKCS12 bundles the signed certificate, its private key and any chain
// certificates into a password protected PKCS#12 archive.
func (c *Certificate) ToPKCS12(password string, chain ...*Certificate) ([]byte, error) {
	body, err := c.ToX509()
	if err != nil {
		return nil, err
	}
	signer, err := keystore.Signer(c.KeyMaterial)
	if err != nil {
		return nil, err
	}
	caCerts := make([]*x509.Certificate, 0, len(chain))
	for _, cert := range chain {
		caBody, err := cert.ToX509()
		if err != nil {
			return nil, err
		}
		caCerts = append(caCerts, caBody)
	}
	return pkcs12.Encode(rand.Reader, signer, body, caCerts, password)
}

// CertificateFromPKCS12 decodes a PKCS#12 archive into its certificate,
// with in-memory key material holding the private key, and the chain
// certificates that came with it.
func CertificateFromPKCS12(data []byte, password string) (*Certificate, []*Certificate, error) {
	key, body, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, nil, err
	}
	cert, err := CertificateFromWire(body)
	if err != nil {
		return nil, nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %T is not a signing key", keystore.ErrKeyAccess, key)
	}
	cert.KeyMaterial = memory.FromSigner(signer)
	chain := make([]*Certificate, 0, len(caCerts))
	for _, caCert := range caCerts {
		parsed, err := CertificateFromWire(caCert)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, parsed)
	}
	return cert, chain, nil
}
