package ca

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// Encodes a raw DER certificate as PEM
func EncodePEM(derCert []byte) ([]byte, error) {
	return encodeBlock("CERTIFICATE", derCert)
}

// Decodes the first PEM certificate block to *x509.Certificate
func DecodePEM(data []byte) (*x509.Certificate, error) {
	block, err := decodeBlock(data, "CERTIFICATE")
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(block.Bytes)
}

// Encodes a DER certificate signing request as PEM
func EncodeCSR(csr []byte) ([]byte, error) {
	return encodeBlock("CERTIFICATE REQUEST", csr)
}

// Decodes PEM bytes to x509.CertificateRequest. The legacy
// "NEW CERTIFICATE REQUEST" block type is accepted.
func DecodeCSR(data []byte) (*x509.CertificateRequest, error) {
	block, err := decodeBlock(data, "CERTIFICATE REQUEST", "NEW CERTIFICATE REQUEST")
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificateRequest(block.Bytes)
}

// Decodes PEM bytes to x509.RevocationList
func DecodeCRL(data []byte) (*x509.RevocationList, error) {
	block, err := decodeBlock(data, "X509 CRL")
	if err != nil {
		return nil, err
	}
	return x509.ParseRevocationList(block.Bytes)
}

func encodeBlock(blockType string, der []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := pem.Encode(buf, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBlock(data []byte, blockTypes ...string) (*pem.Block, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidEncodedPEM
	}
	for _, blockType := range blockTypes {
		if block.Type == blockType {
			return block, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidEncodedPEM, block.Type)
}
