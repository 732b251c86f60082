package ca

import (
	"encoding/asn1"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ocsp"
)

func TestOCSPResponse(t *testing.T) {

	root := createRoot(t)
	good := createLeaf(t, root, "good.example.com", nil)
	revoked := createLeaf(t, root, "revoked.example.com", nil)
	unknown := createLeaf(t, root, "unknown.example.com", nil)

	revokedAt := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	revoked.Revoke(revokedAt)
	registry := NewRegistryVerifier(good.SerialNumber, revoked.SerialNumber)

	nonce := []byte("0123456789abcdef")
	request, err := NewOCSPRequestWithNonce(root, nonce, good, revoked, unknown)
	require.NoError(t, err)

	handler := NewOCSPHandler(request, root, registry.Verify)
	der, err := handler.Response()
	require.NoError(t, err)

	rootBody, err := root.ToX509()
	require.NoError(t, err)

	statuses := map[*Certificate]int{
		good:    ocsp.Good,
		revoked: ocsp.Revoked,
		unknown: ocsp.Unknown,
	}
	for cert, status := range statuses {
		body, err := cert.ToX509()
		require.NoError(t, err)
		response, err := ocsp.ParseResponseForCert(der, body, rootBody)
		require.NoError(t, err)
		assert.Equal(t, status, response.Status)
		assert.Equal(t, 0, body.SerialNumber.Cmp(response.SerialNumber))
		assert.Equal(t, DefaultOCSPNextUpdate, response.NextUpdate.Sub(response.ThisUpdate))
		assert.Equal(t, rootBody.Raw, response.Certificate.Raw)
		if status == ocsp.Revoked {
			assert.True(t, revokedAt.Equal(response.RevokedAt))
			assert.Equal(t, ocsp.Unspecified, response.RevocationReason)
		}
	}

	// The nonce is echoed in the response extensions
	var resp responseASN1
	_, err = asn1.Unmarshal(der, &resp)
	require.NoError(t, err)
	var basic basicResponse
	_, err = asn1.Unmarshal(resp.Response.Response, &basic)
	require.NoError(t, err)
	require.Len(t, basic.TBSResponseData.ResponseExtensions, 1)
	assert.True(t, basic.TBSResponseData.ResponseExtensions[0].Id.Equal(oidOCSPNonce))
	var echoed []byte
	_, err = asn1.Unmarshal(basic.TBSResponseData.ResponseExtensions[0].Value, &echoed)
	require.NoError(t, err)
	assert.Equal(t, nonce, echoed)
	assert.Len(t, basic.TBSResponseData.Responses, 3)
}

func TestOCSPDefaultVerifier(t *testing.T) {

	root := createRoot(t)
	leaf := createLeaf(t, root, "leaf.example.com", nil)

	request, err := NewOCSPRequest(root, leaf)
	require.NoError(t, err)

	// Without a verifier every certificate of the issuer is good
	handler := &OCSPHandler{Request: request, Parent: root, NextUpdate: time.Minute}
	der, err := handler.Response()
	require.NoError(t, err)

	rootBody, err := root.ToX509()
	require.NoError(t, err)
	response, err := ocsp.ParseResponse(der, rootBody)
	require.NoError(t, err)
	assert.Equal(t, ocsp.Good, response.Status)
	assert.Equal(t, time.Minute, response.NextUpdate.Sub(response.ThisUpdate))
}

func TestOCSPOtherIssuer(t *testing.T) {

	root := createRoot(t)
	other := createRoot(t)
	leaf := createLeaf(t, other, "leaf.example.com", nil)

	request, err := NewOCSPRequest(other, leaf)
	require.NoError(t, err)

	der, err := NewOCSPHandler(request, root, nil).Response()
	require.NoError(t, err)

	rootBody, err := root.ToX509()
	require.NoError(t, err)
	response, err := ocsp.ParseResponse(der, rootBody)
	require.NoError(t, err)
	assert.Equal(t, ocsp.Unknown, response.Status)
}

func TestOCSPErrors(t *testing.T) {

	root := createRoot(t)

	_, err := NewOCSPHandler([]byte("not a request"), root, nil).Response()
	assert.True(t, errors.Is(err, ErrInvalidOCSP))

	_, err = NewOCSPHandler(nil, nil, nil).Response()
	assert.True(t, errors.Is(err, ErrNoParent))

	unsigned, err := NewCertificate()
	require.NoError(t, err)
	_, err = NewOCSPHandler(nil, unsigned, nil).Response()
	assert.True(t, errors.Is(err, ErrNotSigned))

	_, err = NewOCSPRequest(root)
	assert.True(t, errors.Is(err, ErrInvalidOCSP))
}

func TestRegistryVerifier(t *testing.T) {

	serial, err := NewSerialNumber()
	require.NoError(t, err)
	registry := NewRegistryVerifier()
	assert.Equal(t, ocsp.Unknown, registry.Verify(serial.Number).Status)

	registry.Add(serial)
	assert.Equal(t, ocsp.Good, registry.Verify(serial.Number).Status)

	at := time.Now()
	serial.Revoke(at)
	status := registry.Verify(serial.Number)
	assert.Equal(t, ocsp.Revoked, status.Status)
	assert.True(t, at.Equal(status.RevokedAt))
}
