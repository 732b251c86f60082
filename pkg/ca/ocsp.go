package ca

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"

	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"golang.org/x/crypto/ocsp"
)

const (
	DefaultOCSPNextUpdate = 30 * time.Second
)

var (
	oidOCSPBasic = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 1}
	oidOCSPNonce = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 2}

	ocspHashOIDs = map[crypto.Hash]asn1.ObjectIdentifier{
		crypto.SHA1:   {1, 3, 14, 3, 2, 26},
		crypto.SHA256: {2, 16, 840, 1, 101, 3, 4, 2, 1},
		crypto.SHA384: {2, 16, 840, 1, 101, 3, 4, 2, 2},
		crypto.SHA512: {2, 16, 840, 1, 101, 3, 4, 2, 3},
	}
)

// RFC 6960 4.1.1
type ocspRequest struct {
	TBSRequest tbsRequest
}

type tbsRequest struct {
	Version       int           `asn1:"explicit,tag:0,default:0,optional"`
	RequestorName asn1.RawValue `asn1:"explicit,tag:1,optional"`
	RequestList   []singleRequest
	Extensions    []pkix.Extension `asn1:"explicit,tag:2,optional"`
}

type singleRequest struct {
	Cert       certID
	Extensions []pkix.Extension `asn1:"explicit,tag:0,optional"`
}

type certID struct {
	HashAlgorithm pkix.AlgorithmIdentifier
	NameHash      []byte
	IssuerKeyHash []byte
	SerialNumber  *big.Int
}

// RFC 6960 4.2.1
type responseASN1 struct {
	Status   asn1.Enumerated
	Response responseBytes `asn1:"explicit,tag:0,optional"`
}

type responseBytes struct {
	ResponseType asn1.ObjectIdentifier
	Response     []byte
}

type basicResponse struct {
	TBSResponseData    responseData
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          asn1.BitString
	Certificates       []asn1.RawValue `asn1:"explicit,tag:0,optional"`
}

type responseData struct {
	Raw                asn1.RawContent
	Version            int `asn1:"optional,default:0,explicit,tag:0"`
	RawResponderID     asn1.RawValue
	ProducedAt         time.Time `asn1:"generalized"`
	Responses          []singleResponse
	ResponseExtensions []pkix.Extension `asn1:"explicit,tag:1,optional"`
}

type singleResponse struct {
	CertID           certID
	Good             asn1.Flag        `asn1:"tag:0,optional"`
	Revoked          revokedInfo      `asn1:"tag:1,optional"`
	Unknown          asn1.Flag        `asn1:"tag:2,optional"`
	ThisUpdate       time.Time        `asn1:"generalized"`
	NextUpdate       time.Time        `asn1:"generalized,explicit,tag:0,optional"`
	SingleExtensions []pkix.Extension `asn1:"explicit,tag:1,optional"`
}

type revokedInfo struct {
	RevocationTime time.Time       `asn1:"generalized"`
	Reason         asn1.Enumerated `asn1:"explicit,tag:0,optional"`
}

type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// OCSPStatus is a verifier's answer for one serial number. Status and
// Reason take the golang.org/x/crypto/ocsp constants, ex: ocsp.Revoked and
// ocsp.KeyCompromise.
type OCSPStatus struct {
	Status    int
	Reason    int
	RevokedAt time.Time
}

// Verifier reports the status of a serial number issued by the responder.
type Verifier func(serial *big.Int) OCSPStatus

// OCSPHandler answers a DER encoded OCSP request on behalf of Parent.
type OCSPHandler struct {
	Request    []byte
	Parent     *Certificate
	Verifier   Verifier
	NextUpdate time.Duration
	Digest     string
	Logger     *logging.Logger
}

func NewOCSPHandler(request []byte, parent *Certificate, verifier Verifier) *OCSPHandler {
	return &OCSPHandler{
		Request:    request,
		Parent:     parent,
		Verifier:   verifier,
		NextUpdate: DefaultOCSPNextUpdate,
	}
}

func (h *OCSPHandler) logger() *logging.Logger {
	if h.Logger == nil {
		return logging.DiscardLogger()
	}
	return h.Logger
}

func (h *OCSPHandler) verify(serial *big.Int) OCSPStatus {
	if h.Verifier == nil {
		return OCSPStatus{Status: ocsp.Good}
	}
	return h.Verifier(serial)
}

// Response builds a successful basic OCSP response with one single
// response per certificate ID in the request. A nonce in the request is
// copied into the response. Certificate IDs that name another issuer are
// answered as unknown.
func (h *OCSPHandler) Response() ([]byte, error) {
	if h.Parent == nil {
		return nil, ErrNoParent
	}
	issuer, err := h.Parent.ToX509()
	if err != nil {
		return nil, err
	}
	signer, err := keystore.Signer(h.Parent.KeyMaterial)
	if err != nil {
		return nil, err
	}
	algorithm, err := keystore.SignatureAlgorithm(signer.Public(), h.Digest)
	if err != nil {
		return nil, err
	}
	algorithmID, err := keystore.AlgorithmIdentifier(algorithm)
	if err != nil {
		return nil, err
	}

	req, err := parseOCSPRequest(h.Request)
	if err != nil {
		return nil, err
	}

	nextUpdate := h.NextUpdate
	if nextUpdate < 0 {
		nextUpdate = 0
	}
	thisUpdate := time.Now().UTC().Truncate(time.Second)

	responses := make([]singleResponse, 0, len(req.RequestList))
	for _, single := range req.RequestList {
		id := single.Cert
		response := singleResponse{
			CertID:     id,
			ThisUpdate: thisUpdate,
			NextUpdate: thisUpdate.Add(nextUpdate),
		}
		status := OCSPStatus{Status: ocsp.Unknown}
		if issuedBy(id, issuer) {
			status = h.verify(id.SerialNumber)
		}
		switch status.Status {
		case ocsp.Good:
			response.Good = true
		case ocsp.Revoked:
			revokedAt := status.RevokedAt
			if revokedAt.IsZero() {
				revokedAt = thisUpdate
			}
			response.Revoked = revokedInfo{
				RevocationTime: revokedAt.UTC(),
				Reason:         asn1.Enumerated(status.Reason),
			}
		default:
			response.Unknown = true
		}
		responses = append(responses, response)
	}

	tbs := responseData{
		RawResponderID: asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        1,
			IsCompound: true,
			Bytes:      issuer.RawSubject,
		},
		ProducedAt: thisUpdate,
		Responses:  responses,
	}
	for _, ext := range req.Extensions {
		if ext.Id.Equal(oidOCSPNonce) {
			tbs.ResponseExtensions = append(tbs.ResponseExtensions, ext)
		}
	}

	tbsDER, err := asn1.Marshal(tbs)
	if err != nil {
		return nil, err
	}
	signature, err := keystore.SignMessage(signer, algorithm, tbsDER)
	if err != nil {
		return nil, err
	}
	basicDER, err := asn1.Marshal(basicResponse{
		TBSResponseData:    responseData{Raw: tbsDER},
		SignatureAlgorithm: algorithmID,
		Signature:          asn1.BitString{Bytes: signature, BitLength: 8 * len(signature)},
		Certificates:       []asn1.RawValue{{FullBytes: issuer.Raw}},
	})
	if err != nil {
		return nil, err
	}
	der, err := asn1.Marshal(responseASN1{
		Status: asn1.Enumerated(ocsp.Success),
		Response: responseBytes{
			ResponseType: oidOCSPBasic,
			Response:     basicDER,
		},
	})
	if err != nil {
		return nil, err
	}

	h.logger().Audit(logging.AuditEntry{
		Operation: logging.OperationOCSP,
		Issuer:    h.Parent.DistinguishedName.String(),
		Details:   fmt.Sprintf("%d certificate ids", len(responses)),
	})
	return der, nil
}

func parseOCSPRequest(der []byte) (*tbsRequest, error) {
	var req ocspRequest
	if _, err := asn1.Unmarshal(der, &req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOCSP, err)
	}
	if len(req.TBSRequest.RequestList) == 0 {
		return nil, fmt.Errorf("%w: no certificate ids", ErrInvalidOCSP)
	}
	for _, single := range req.TBSRequest.RequestList {
		if single.Cert.SerialNumber == nil {
			return nil, fmt.Errorf("%w: certificate id without serial number", ErrInvalidOCSP)
		}
	}
	return &req.TBSRequest, nil
}

func issuedBy(id certID, issuer *x509.Certificate) bool {
	hash := ocspHash(id.HashAlgorithm.Algorithm)
	if hash == 0 {
		return false
	}
	nameHash, keyHash, err := issuerHashes(hash, issuer)
	if err != nil {
		return false
	}
	return bytes.Equal(nameHash, id.NameHash) && bytes.Equal(keyHash, id.IssuerKeyHash)
}

func ocspHash(oid asn1.ObjectIdentifier) crypto.Hash {
	for hash, hashOID := range ocspHashOIDs {
		if hashOID.Equal(oid) {
			return hash
		}
	}
	return 0
}

func issuerHashes(hash crypto.Hash, issuer *x509.Certificate) ([]byte, []byte, error) {
	var spki subjectPublicKeyInfo
	if _, err := asn1.Unmarshal(issuer.RawSubjectPublicKeyInfo, &spki); err != nil {
		return nil, nil, err
	}
	h := hash.New()
	h.Write(issuer.RawSubject)
	nameHash := h.Sum(nil)
	h.Reset()
	h.Write(spki.PublicKey.RightAlign())
	return nameHash, h.Sum(nil), nil
}

// NewOCSPRequest builds a DER encoded request for one or more certificates
// issued by issuer, using SHA-1 certificate IDs.
func NewOCSPRequest(issuer *Certificate, certs ...*Certificate) ([]byte, error) {
	return NewOCSPRequestWithNonce(issuer, nil, certs...)
}

// NewOCSPRequestWithNonce is NewOCSPRequest with a nonce extension. A nil
// nonce leaves the extension out.
func NewOCSPRequestWithNonce(issuer *Certificate, nonce []byte, certs ...*Certificate) ([]byte, error) {
	if issuer == nil {
		return nil, ErrNoParent
	}
	issuerBody, err := issuer.ToX509()
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no certificates", ErrInvalidOCSP)
	}
	nameHash, keyHash, err := issuerHashes(crypto.SHA1, issuerBody)
	if err != nil {
		return nil, err
	}
	requests := make([]singleRequest, 0, len(certs))
	for _, cert := range certs {
		serial := cert.serial()
		if serial == nil {
			return nil, fmt.Errorf("%w: certificate without serial number", ErrInvalidOCSP)
		}
		requests = append(requests, singleRequest{
			Cert: certID{
				HashAlgorithm: pkix.AlgorithmIdentifier{
					Algorithm:  ocspHashOIDs[crypto.SHA1],
					Parameters: asn1.RawValue{Tag: asn1.TagNull},
				},
				NameHash:      nameHash,
				IssuerKeyHash: keyHash,
				SerialNumber:  serial,
			},
		})
	}
	tbs := tbsRequest{RequestList: requests}
	if nonce != nil {
		value, err := asn1.Marshal(nonce)
		if err != nil {
			return nil, err
		}
		tbs.Extensions = []pkix.Extension{{Id: oidOCSPNonce, Value: value}}
	}
	return asn1.Marshal(ocspRequest{TBSRequest: tbs})
}

// RegistryVerifier answers OCSP queries from a set of issued serial
// numbers. Serial numbers it has not seen are unknown.
type RegistryVerifier struct {
	serials map[string]*SerialNumber
}

func NewRegistryVerifier(serials ...*SerialNumber) *RegistryVerifier {
	registry := &RegistryVerifier{serials: make(map[string]*SerialNumber, len(serials))}
	for _, serial := range serials {
		registry.Add(serial)
	}
	return registry
}

// Add registers an issued serial number. Revoking it later is reflected
// in subsequent answers.
func (r *RegistryVerifier) Add(serial *SerialNumber) {
	if serial == nil || serial.Number == nil {
		return
	}
	r.serials[serial.Number.Text(16)] = serial
}

func (r *RegistryVerifier) Verify(serial *big.Int) OCSPStatus {
	if serial == nil {
		return OCSPStatus{Status: ocsp.Unknown}
	}
	registered, ok := r.serials[serial.Text(16)]
	if !ok {
		return OCSPStatus{Status: ocsp.Unknown}
	}
	if registered.IsRevoked() {
		return OCSPStatus{
			Status:    ocsp.Revoked,
			Reason:    ocsp.Unspecified,
			RevokedAt: registered.RevokedAt,
		}
	}
	return OCSPStatus{Status: ocsp.Good}
}
