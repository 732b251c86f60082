package keystore

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
)

var signatureAlgorithms = []struct {
	algo       x509.SignatureAlgorithm
	oid        asn1.ObjectIdentifier
	hash       crypto.Hash
	nullParams bool
}{
	{x509.SHA1WithRSA, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}, crypto.SHA1, true},
	{x509.SHA256WithRSA, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}, crypto.SHA256, true},
	{x509.SHA384WithRSA, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}, crypto.SHA384, true},
	{x509.SHA512WithRSA, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}, crypto.SHA512, true},
	{x509.ECDSAWithSHA256, asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}, crypto.SHA256, false},
	{x509.ECDSAWithSHA384, asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}, crypto.SHA384, false},
	{x509.ECDSAWithSHA512, asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}, crypto.SHA512, false},
	{x509.PureEd25519, asn1.ObjectIdentifier{1, 3, 101, 112}, crypto.Hash(0), false},
}

// AlgorithmIdentifier returns the DER algorithm identifier for a signature
// algorithm, for structures x509 does not sign itself (SPKAC, OCSP).
func AlgorithmIdentifier(algo x509.SignatureAlgorithm) (pkix.AlgorithmIdentifier, error) {
	for _, known := range signatureAlgorithms {
		if known.algo == algo {
			id := pkix.AlgorithmIdentifier{Algorithm: known.oid}
			if known.nullParams {
				id.Parameters = asn1.NullRawValue
			}
			return id, nil
		}
	}
	return pkix.AlgorithmIdentifier{}, fmt.Errorf("%w: %s", ErrInvalidKeyAlgorithm, algo)
}

// SignatureAlgorithmFromOID maps an algorithm identifier OID back to the
// x509 signature algorithm, or x509.UnknownSignatureAlgorithm.
func SignatureAlgorithmFromOID(oid asn1.ObjectIdentifier) x509.SignatureAlgorithm {
	for _, known := range signatureAlgorithms {
		if known.oid.Equal(oid) {
			return known.algo
		}
	}
	return x509.UnknownSignatureAlgorithm
}

// SignMessage hashes message as required by algo and signs it.
func SignMessage(signer crypto.Signer, algo x509.SignatureAlgorithm, message []byte) ([]byte, error) {
	hash := crypto.Hash(0)
	found := false
	for _, known := range signatureAlgorithms {
		if known.algo == algo {
			hash, found = known.hash, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKeyAlgorithm, algo)
	}
	digest := message
	if hash != crypto.Hash(0) {
		h := hash.New()
		h.Write(message)
		digest = h.Sum(nil)
	}
	return signer.Sign(rand.Reader, digest, hash)
}
