package certstore

import (
	"errors"
)

type FSExtension string
type Partition string

const (
	PARTITION_ROOT   Partition = ""
	PARTITION_ISSUED Partition = "issued"
	PARTITION_CRL    Partition = "crl"

	FSEXT_PEM         FSExtension = ".crt"
	FSEXT_PRIVATE_PEM FSExtension = ".key"
	FSEXT_CRL         FSExtension = ".crl"

	CA_NAME    = "ca"
	INDEX_NAME = "index"
)

var (
	ErrCANotFound   = errors.New("store/x509: certificate authority not initialized")
	ErrCAExists     = errors.New("store/x509: certificate authority already initialized")
	ErrCertNotFound = errors.New("store/x509: certificate not found")
	ErrCertExists   = errors.New("store/x509: certificate already issued")
	ErrCertRevoked  = errors.New("store/x509: certificate revoked")
	ErrCRLNotFound  = errors.New("store/x509: certificate revocation list not found")

	ErrInvalidSerialNumber = errors.New("store/x509: invalid serial number")
)

func blobName(name string, extension FSExtension) string {
	return name + string(extension)
}
