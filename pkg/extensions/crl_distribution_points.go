package extensions

import (
	"encoding/asn1"
	"fmt"
	"net/url"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

// CRLDistributionPoints lists where revocation lists for the certificate can
// be retrieved. RFC 5280 4.2.1.13.
type CRLDistributionPoints struct {
	Critical bool
	URIs     []string
}

type distributionPoint struct {
	DistributionPoint distributionPointName `asn1:"optional,tag:0"`
	Reason            asn1.BitString        `asn1:"optional,tag:1"`
	CRLIssuer         asn1.RawValue         `asn1:"optional,tag:2"`
}

type distributionPointName struct {
	FullName     []asn1.RawValue `asn1:"optional,tag:0"`
	RelativeName asn1.RawValue   `asn1:"optional,tag:1"`
}

func NewCRLDistributionPoints() *CRLDistributionPoints {
	return &CRLDistributionPoints{URIs: []string{}}
}

func (c *CRLDistributionPoints) ID() string {
	return IDCRLDistributionPoints
}

func (c *CRLDistributionPoints) IsCritical() bool {
	return c.Critical
}

func (c *CRLDistributionPoints) Validate(errs *validation.Errors) {
	for _, uri := range c.URIs {
		if !validURI(uri) {
			errs.Addf("uris", "contains an invalid URI %q", uri)
		}
	}
}

func (c *CRLDistributionPoints) String() string {
	parts := make([]string, len(c.URIs))
	for i, uri := range c.URIs {
		parts[i] = "URI:" + uri
	}
	return strings.Join(parts, ",")
}

func (c *CRLDistributionPoints) Equal(other Extension) bool {
	o, ok := other.(*CRLDistributionPoints)
	return ok && c.Critical == o.Critical && equalStrings(c.URIs, o.URIs)
}

func (c *CRLDistributionPoints) Clone() Extension {
	return &CRLDistributionPoints{Critical: c.Critical, URIs: cloneStrings(c.URIs)}
}

// All URIs are carried as full names of a single distribution point.
func (c *CRLDistributionPoints) marshal(ctx *Context) ([]byte, error) {
	if len(c.URIs) == 0 {
		return nil, fmt.Errorf("%w: no distribution point URIs", ErrInvalidValue)
	}
	names := make([]asn1.RawValue, len(c.URIs))
	for i, uri := range c.URIs {
		names[i] = generalName(tagURI, []byte(uri))
	}
	return asn1.Marshal([]distributionPoint{
		{DistributionPoint: distributionPointName{FullName: names}},
	})
}

// ParseCRLDistributionPoints parses "URI:<u1>,URI:<u2>".
func ParseCRLDistributionPoints(value string, critical bool) (*CRLDistributionPoints, error) {
	c := &CRLDistributionPoints{Critical: critical, URIs: []string{}}
	for _, part := range splitList(value) {
		uri, ok := cutPrefixFold(part, "URI:")
		if !ok {
			return nil, fmt.Errorf("%w: crlDistributionPoints %q", ErrInvalidValue, part)
		}
		c.URIs = append(c.URIs, uri)
	}
	return c, nil
}

// Only a single distribution point of full name URIs has a typed form.
func describeCRLDistributionPoints(der []byte) (string, error) {
	var points []distributionPoint
	if err := unmarshalStrict(der, &points, ""); err != nil {
		return "", err
	}
	if len(points) != 1 {
		return "", fmt.Errorf("%w: %d distribution points", ErrUnsupported, len(points))
	}
	point := points[0]
	if len(point.DistributionPoint.RelativeName.FullBytes) > 0 ||
		len(point.CRLIssuer.FullBytes) > 0 || point.Reason.BitLength > 0 ||
		len(point.DistributionPoint.FullName) == 0 {
		return "", ErrUnsupported
	}
	c := NewCRLDistributionPoints()
	for _, name := range point.DistributionPoint.FullName {
		if name.Tag != tagURI {
			return "", ErrUnsupported
		}
		c.URIs = append(c.URIs, string(name.Bytes))
	}
	if err := checkReencode(c, der); err != nil {
		return "", err
	}
	parts := make([]string, len(c.URIs))
	for i, uri := range c.URIs {
		parts[i] = "URI:" + uri
	}
	return strings.Join(parts, ", "), nil
}

func validURI(uri string) bool {
	if strings.TrimSpace(uri) == "" {
		return false
	}
	parsed, err := url.Parse(uri)
	return err == nil && parsed.Scheme != ""
}

func cutPrefixFold(s, prefix string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
