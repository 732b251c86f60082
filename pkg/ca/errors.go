package ca

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
)

var (
	ErrType = extensions.ErrType

	ErrNotSigned         = fmt.Errorf("%w: certificate-authority: not signed", keystore.ErrPrecondition)
	ErrNoParent          = fmt.Errorf("%w: certificate-authority: parent required", keystore.ErrPrecondition)
	ErrNotRevoked        = fmt.Errorf("%w: certificate-authority: entry is not revoked", keystore.ErrPrecondition)
	ErrNoSubjectEmail    = fmt.Errorf("%w: certificate-authority: subject has no email address to copy", keystore.ErrPrecondition)
	ErrNoSubject         = fmt.Errorf("%w: certificate-authority: subject required", keystore.ErrPrecondition)
	ErrUnknownProfileKey = errors.New("certificate-authority: unknown signing profile key")
	ErrInvalidName       = errors.New("certificate-authority: invalid distinguished name")
	ErrInvalidEncodedPEM = errors.New("certificate-authority: invalid PEM encoding")
	ErrInvalidOCSP       = errors.New("certificate-authority: invalid OCSP request")
)
