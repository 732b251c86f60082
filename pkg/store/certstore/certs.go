package certstore

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/jeremyhahn/go-certificate-authority/pkg/serializer"
	"github.com/jeremyhahn/go-certificate-authority/pkg/store/blob"
	"github.com/spf13/afero"
)

// CertStore persists the certificate authority: its certificate and key,
// every issued certificate, the latest revocation list and the index that
// tracks revocations.
//
//	root-dir/ca.crt
//	root-dir/ca.key
//	root-dir/index.yaml
//	root-dir/issued/<serial>.crt
//	root-dir/crl/ca.crl
type CertStore struct {
	logger     *logging.Logger
	blobs      blob.BlobStorer
	serializer serializer.Serializer[*Index]
	index      *Index
}

func NewCertStore(
	logger *logging.Logger,
	fs afero.Fs,
	rootDir string,
	serializerType serializer.SerializerType) (*CertStore, error) {

	if logger == nil {
		logger = logging.DiscardLogger()
	}
	blobs, err := blob.NewFSBlobStore(logger, fs, rootDir)
	if err != nil {
		return nil, err
	}
	s, err := serializer.NewSerializer[*Index](serializerType)
	if err != nil {
		return nil, err
	}
	cs := &CertStore{
		logger:     logger,
		blobs:      blobs,
		serializer: s,
		index:      &Index{},
	}
	if err := cs.load(); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *CertStore) indexKey() []byte {
	return blob.NewKey(string(PARTITION_ROOT), INDEX_NAME+cs.serializer.Extension())
}

func (cs *CertStore) load() error {
	data, err := cs.blobs.Get(cs.indexKey())
	if err != nil {
		if errors.Is(err, blob.ErrBlobNotFound) {
			return nil
		}
		return err
	}
	index := &Index{}
	if err := cs.serializer.Deserialize(data, index); err != nil {
		return fmt.Errorf("store/x509: corrupt index: %w", err)
	}
	cs.index = index
	return nil
}

func (cs *CertStore) save() error {
	cs.index.sort()
	data, err := cs.serializer.Serialize(cs.index)
	if err != nil {
		return err
	}
	return cs.blobs.Save(cs.indexKey(), data)
}

func (cs *CertStore) HasCA() bool {
	return cs.blobs.Exists(blob.NewKey(string(PARTITION_ROOT), blobName(CA_NAME, FSEXT_PEM)))
}

// SaveCA stores the signed certificate authority certificate. keyPEM may
// be nil when the key lives on a hardware token.
func (cs *CertStore) SaveCA(cert *ca.Certificate, keyPEM []byte) error {
	if cs.HasCA() {
		return ErrCAExists
	}
	certPEM, err := cert.ToPEM()
	if err != nil {
		return err
	}
	if keyPEM != nil {
		key := blob.NewKey(string(PARTITION_ROOT), blobName(CA_NAME, FSEXT_PRIVATE_PEM))
		if err := cs.blobs.Save(key, keyPEM); err != nil {
			return err
		}
	}
	return cs.blobs.Save(blob.NewKey(string(PARTITION_ROOT), blobName(CA_NAME, FSEXT_PEM)), certPEM)
}

// CA returns the PEM certificate of the certificate authority.
func (cs *CertStore) CA() ([]byte, error) {
	data, err := cs.blobs.Get(blob.NewKey(string(PARTITION_ROOT), blobName(CA_NAME, FSEXT_PEM)))
	if errors.Is(err, blob.ErrBlobNotFound) {
		return nil, ErrCANotFound
	}
	return data, err
}

// CAKey returns the PEM private key of the certificate authority.
// blob.ErrBlobNotFound is returned when the key is not stored on disk.
func (cs *CertStore) CAKey() ([]byte, error) {
	return cs.blobs.Get(blob.NewKey(string(PARTITION_ROOT), blobName(CA_NAME, FSEXT_PRIVATE_PEM)))
}

// Import stores a signed certificate and adds it to the index.
func (cs *CertStore) Import(cert *ca.Certificate) error {
	x509Cert, err := cert.ToX509()
	if err != nil {
		return err
	}
	serial := x509Cert.SerialNumber.Text(16)
	if cs.index.find(serial) != nil {
		return fmt.Errorf("%w: %s", ErrCertExists, serial)
	}
	certPEM, err := cert.ToPEM()
	if err != nil {
		return err
	}
	if err := cs.blobs.Save(cs.issuedKey(serial), certPEM); err != nil {
		return err
	}
	entry := &IndexEntry{
		Serial:   serial,
		Subject:  cert.DistinguishedName.String(),
		NotAfter: x509Cert.NotAfter.UTC(),
	}
	if cert.IsRevoked() {
		entry.RevokedAt = cert.RevokedAt.UTC()
	}
	cs.index.Entries = append(cs.index.Entries, entry)
	if err := cs.save(); err != nil {
		cs.index.remove(entry)
		return err
	}
	return nil
}

func (cs *CertStore) issuedKey(serial string) []byte {
	return blob.NewKey(string(PARTITION_ISSUED), blobName(serial, FSEXT_PEM))
}

// Get loads an issued certificate by its hex serial number. The returned
// certificate carries the revocation time recorded in the index.
func (cs *CertStore) Get(serial string) (*ca.Certificate, error) {
	number, err := ParseSerial(serial)
	if err != nil {
		return nil, err
	}
	entry := cs.index.find(number.Text(16))
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrCertNotFound, serial)
	}
	data, err := cs.blobs.Get(cs.issuedKey(entry.Serial))
	if err != nil {
		return nil, err
	}
	cert, err := ca.CertificateFromPEM(data)
	if err != nil {
		return nil, err
	}
	if entry.IsRevoked() {
		cert.RevokedAt = entry.RevokedAt
		cert.SerialNumber.RevokedAt = entry.RevokedAt
	}
	return cert, nil
}

// Revoke marks an issued certificate as revoked at the given time.
func (cs *CertStore) Revoke(serial string, at time.Time) (*IndexEntry, error) {
	number, err := ParseSerial(serial)
	if err != nil {
		return nil, err
	}
	entry := cs.index.find(number.Text(16))
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrCertNotFound, serial)
	}
	if entry.IsRevoked() {
		return nil, fmt.Errorf("%w: %s", ErrCertRevoked, serial)
	}
	entry.RevokedAt = at.UTC()
	if err := cs.save(); err != nil {
		entry.RevokedAt = time.Time{}
		return nil, err
	}
	cs.logger.Audit(logging.AuditEntry{
		Operation: logging.OperationRevoke,
		Serial:    number,
		Subject:   entry.Subject,
	})
	return entry, nil
}

// Entries returns a copy of the index, ordered by serial number.
func (cs *CertStore) Entries() []IndexEntry {
	entries := make([]IndexEntry, len(cs.index.Entries))
	for i, entry := range cs.index.Entries {
		entries[i] = *entry
	}
	return entries
}

// Revoked returns the revoked serial numbers, ready to append to a
// revocation list.
func (cs *CertStore) Revoked() ([]*ca.SerialNumber, error) {
	revoked := make([]*ca.SerialNumber, 0)
	for _, entry := range cs.index.Entries {
		if !entry.IsRevoked() {
			continue
		}
		serial, err := entry.SerialNumber()
		if err != nil {
			return nil, err
		}
		revoked = append(revoked, serial)
	}
	return revoked, nil
}

// Verifier returns an OCSP verifier that knows every issued serial number.
func (cs *CertStore) Verifier() (*ca.RegistryVerifier, error) {
	verifier := ca.NewRegistryVerifier()
	for _, entry := range cs.index.Entries {
		serial, err := entry.SerialNumber()
		if err != nil {
			return nil, err
		}
		verifier.Add(serial)
	}
	return verifier, nil
}

// NewCRL returns a revocation list holding every revoked serial number,
// numbered to follow the last saved list.
func (cs *CertStore) NewCRL(parent *ca.Certificate) (*ca.CertificateRevocationList, error) {
	revoked, err := cs.Revoked()
	if err != nil {
		return nil, err
	}
	crl := ca.NewCRL(parent)
	crl.SetNumber(cs.CRLNumber())
	for _, serial := range revoked {
		if err := crl.Append(serial); err != nil {
			return nil, err
		}
	}
	return crl, nil
}

// SaveCRL stores a signed revocation list and records its number.
func (cs *CertStore) SaveCRL(crl *ca.CertificateRevocationList) error {
	crlPEM, err := crl.ToPEM()
	if err != nil {
		return err
	}
	if err := cs.blobs.Save(blob.NewKey(string(PARTITION_CRL), blobName(CA_NAME, FSEXT_CRL)), crlPEM); err != nil {
		return err
	}
	previous := cs.index.CRLNumber
	cs.index.CRLNumber = crl.Number().Text(16)
	if err := cs.save(); err != nil {
		cs.index.CRLNumber = previous
		return err
	}
	return nil
}

// CRL returns the PEM encoded revocation list saved last.
func (cs *CertStore) CRL() ([]byte, error) {
	data, err := cs.blobs.Get(blob.NewKey(string(PARTITION_CRL), blobName(CA_NAME, FSEXT_CRL)))
	if errors.Is(err, blob.ErrBlobNotFound) {
		return nil, ErrCRLNotFound
	}
	return data, err
}

// CRLNumber returns the number of the revocation list saved last, or zero.
func (cs *CertStore) CRLNumber() *big.Int {
	return cs.index.crlNumber()
}
