package request

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
)

var (
	ErrInvalidSPKAC = errors.New("keystore/request: invalid SPKAC")
)

// SPKAC is a Netscape signed public key and challenge, the request format
// produced by the HTML keygen element and "openssl spkac". It carries no
// subject.
type SPKAC struct {
	Raw                []byte
	PublicKey          crypto.PublicKey
	Challenge          string
	SignatureAlgorithm x509.SignatureAlgorithm

	signed    []byte
	signature []byte
}

type publicKeyAndChallenge struct {
	PublicKey asn1.RawValue
	Challenge string `asn1:"ia5"`
}

type signedPublicKeyAndChallenge struct {
	PublicKeyAndChallenge asn1.RawValue
	SignatureAlgorithm    pkix.AlgorithmIdentifier
	Signature             asn1.BitString
}

// ParseSPKAC parses a DER encoded SPKAC.
func ParseSPKAC(der []byte) (*SPKAC, error) {
	var signed signedPublicKeyAndChallenge
	rest, err := asn1.Unmarshal(der, &signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSPKAC, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidSPKAC)
	}
	var pkac publicKeyAndChallenge
	if _, err := asn1.Unmarshal(signed.PublicKeyAndChallenge.FullBytes, &pkac); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSPKAC, err)
	}
	pub, err := x509.ParsePKIXPublicKey(pkac.PublicKey.FullBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSPKAC, err)
	}
	return &SPKAC{
		Raw:                der,
		PublicKey:          pub,
		Challenge:          pkac.Challenge,
		SignatureAlgorithm: keystore.SignatureAlgorithmFromOID(signed.SignatureAlgorithm.Algorithm),
		signed:             signed.PublicKeyAndChallenge.FullBytes,
		signature:          signed.Signature.RightAlign(),
	}, nil
}

// ParseSPKACBase64 parses the base64 form, with or without the "SPKAC="
// prefix used in OpenSSL spkac files.
func ParseSPKACBase64(encoded string) (*SPKAC, error) {
	encoded = strings.TrimSpace(encoded)
	encoded = strings.TrimPrefix(encoded, "SPKAC=")
	encoded = strings.Join(strings.Fields(encoded), "")
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSPKAC, err)
	}
	return ParseSPKAC(der)
}

// CheckSignature verifies the SPKAC signature with its own public key.
func (s *SPKAC) CheckSignature() error {
	if s.SignatureAlgorithm == x509.UnknownSignatureAlgorithm {
		return fmt.Errorf("%w: unsupported signature algorithm", keystore.ErrIntegrity)
	}
	verifier := &x509.Certificate{PublicKey: s.PublicKey}
	if err := verifier.CheckSignature(s.SignatureAlgorithm, s.signed, s.signature); err != nil {
		return fmt.Errorf("%w: %s", keystore.ErrIntegrity, err)
	}
	return nil
}

// Base64 returns the SPKAC in the form consumed by ParseSPKACBase64.
func (s *SPKAC) Base64() string {
	return base64.StdEncoding.EncodeToString(s.Raw)
}

// NewSPKAC builds and signs an SPKAC for the signer's public key.
func NewSPKAC(signer crypto.Signer, challenge, digest string) (*SPKAC, error) {
	algo, err := keystore.SignatureAlgorithm(signer.Public(), digest)
	if err != nil {
		return nil, err
	}
	spki, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return nil, err
	}
	signed, err := asn1.Marshal(publicKeyAndChallenge{
		PublicKey: asn1.RawValue{FullBytes: spki},
		Challenge: challenge,
	})
	if err != nil {
		return nil, err
	}

	algorithmID, err := keystore.AlgorithmIdentifier(algo)
	if err != nil {
		return nil, err
	}
	signature, err := keystore.SignMessage(signer, algo, signed)
	if err != nil {
		return nil, err
	}

	der, err := asn1.Marshal(signedPublicKeyAndChallenge{
		PublicKeyAndChallenge: asn1.RawValue{FullBytes: signed},
		SignatureAlgorithm:    algorithmID,
		Signature:             asn1.BitString{Bytes: signature, BitLength: len(signature) * 8},
	})
	if err != nil {
		return nil, err
	}
	return ParseSPKAC(der)
}
