package extensions

// Overrides holds the partial extension values a signing profile applies
// on top of a certificate's extensions. Nil fields leave the live value
// untouched.
type Overrides struct {
	BasicConstraints       *BasicConstraintsOverride       `mapstructure:"basicConstraints" yaml:"basicConstraints,omitempty" json:"basicConstraints,omitempty"`
	CRLDistributionPoints  *CRLDistributionPointsOverride  `mapstructure:"crlDistributionPoints" yaml:"crlDistributionPoints,omitempty" json:"crlDistributionPoints,omitempty"`
	SubjectKeyIdentifier   *SubjectKeyIdentifierOverride   `mapstructure:"subjectKeyIdentifier" yaml:"subjectKeyIdentifier,omitempty" json:"subjectKeyIdentifier,omitempty"`
	AuthorityKeyIdentifier *AuthorityKeyIdentifierOverride `mapstructure:"authorityKeyIdentifier" yaml:"authorityKeyIdentifier,omitempty" json:"authorityKeyIdentifier,omitempty"`
	AuthorityInfoAccess    *AuthorityInfoAccessOverride    `mapstructure:"authorityInfoAccess" yaml:"authorityInfoAccess,omitempty" json:"authorityInfoAccess,omitempty"`
	KeyUsage               *UsageOverride                  `mapstructure:"keyUsage" yaml:"keyUsage,omitempty" json:"keyUsage,omitempty"`
	ExtendedKeyUsage       *UsageOverride                  `mapstructure:"extendedKeyUsage" yaml:"extendedKeyUsage,omitempty" json:"extendedKeyUsage,omitempty"`
	SubjectAltName         *SubjectAltNameOverride         `mapstructure:"subjectAltName" yaml:"subjectAltName,omitempty" json:"subjectAltName,omitempty"`
	CertificatePolicies    *CertificatePoliciesOverride    `mapstructure:"certificatePolicies" yaml:"certificatePolicies,omitempty" json:"certificatePolicies,omitempty"`
}

type BasicConstraintsOverride struct {
	Critical *bool `mapstructure:"critical" yaml:"critical,omitempty" json:"critical,omitempty"`
	CA       *bool `mapstructure:"ca" yaml:"ca,omitempty" json:"ca,omitempty"`
	PathLen  *int  `mapstructure:"path_len" yaml:"path_len,omitempty" json:"path_len,omitempty"`
}

type CRLDistributionPointsOverride struct {
	Critical *bool    `mapstructure:"critical" yaml:"critical,omitempty" json:"critical,omitempty"`
	URIs     []string `mapstructure:"uris" yaml:"uris,omitempty" json:"uris,omitempty"`
}

type SubjectKeyIdentifierOverride struct {
	Critical   *bool   `mapstructure:"critical" yaml:"critical,omitempty" json:"critical,omitempty"`
	Identifier *string `mapstructure:"identifier" yaml:"identifier,omitempty" json:"identifier,omitempty"`
}

type AuthorityKeyIdentifierOverride struct {
	Critical   *bool    `mapstructure:"critical" yaml:"critical,omitempty" json:"critical,omitempty"`
	Identifier []string `mapstructure:"identifier" yaml:"identifier,omitempty" json:"identifier,omitempty"`
}

type AuthorityInfoAccessOverride struct {
	Critical  *bool    `mapstructure:"critical" yaml:"critical,omitempty" json:"critical,omitempty"`
	OCSP      []string `mapstructure:"ocsp" yaml:"ocsp,omitempty" json:"ocsp,omitempty"`
	CAIssuers []string `mapstructure:"ca_issuers" yaml:"ca_issuers,omitempty" json:"ca_issuers,omitempty"`
}

// Used for both keyUsage and extendedKeyUsage
type UsageOverride struct {
	Critical *bool    `mapstructure:"critical" yaml:"critical,omitempty" json:"critical,omitempty"`
	Usage    []string `mapstructure:"usage" yaml:"usage,omitempty" json:"usage,omitempty"`
}

type SubjectAltNameOverride struct {
	Critical *bool    `mapstructure:"critical" yaml:"critical,omitempty" json:"critical,omitempty"`
	URIs     []string `mapstructure:"uris" yaml:"uris,omitempty" json:"uris,omitempty"`
	DNSNames []string `mapstructure:"dns_names" yaml:"dns_names,omitempty" json:"dns_names,omitempty"`
	IPs      []string `mapstructure:"ips" yaml:"ips,omitempty" json:"ips,omitempty"`
	Emails   []string `mapstructure:"emails" yaml:"emails,omitempty" json:"emails,omitempty"`
}

type UserNoticeOverride struct {
	ExplicitText  *string `mapstructure:"explicit_text" yaml:"explicit_text,omitempty" json:"explicit_text,omitempty"`
	Organization  *string `mapstructure:"organization" yaml:"organization,omitempty" json:"organization,omitempty"`
	NoticeNumbers []int   `mapstructure:"notice_numbers" yaml:"notice_numbers,omitempty" json:"notice_numbers,omitempty"`
}

type CertificatePoliciesOverride struct {
	UserNoticeOverride `mapstructure:",squash" yaml:",inline"`

	Critical         *bool               `mapstructure:"critical" yaml:"critical,omitempty" json:"critical,omitempty"`
	PolicyIdentifier *string             `mapstructure:"policy_identifier" yaml:"policy_identifier,omitempty" json:"policy_identifier,omitempty"`
	CPSURIs          []string            `mapstructure:"cps_uris" yaml:"cps_uris,omitempty" json:"cps_uris,omitempty"`
	UserNotice       *UserNoticeOverride `mapstructure:"user_notice" yaml:"user_notice,omitempty" json:"user_notice,omitempty"`
}

// Apply merges the overrides into the set. Extensions missing from the set,
// or held as Raw, are replaced by their defaults first.
func (o *Overrides) Apply(set Set) error {
	if o == nil {
		return nil
	}
	if o.BasicConstraints != nil {
		if err := o.BasicConstraints.apply(ensure(set, IDBasicConstraints).(*BasicConstraints)); err != nil {
			return err
		}
	}
	if o.CRLDistributionPoints != nil {
		o.CRLDistributionPoints.apply(ensure(set, IDCRLDistributionPoints).(*CRLDistributionPoints))
	}
	if o.SubjectKeyIdentifier != nil {
		o.SubjectKeyIdentifier.apply(ensure(set, IDSubjectKeyIdentifier).(*SubjectKeyIdentifier))
	}
	if o.AuthorityKeyIdentifier != nil {
		o.AuthorityKeyIdentifier.apply(ensure(set, IDAuthorityKeyIdentifier).(*AuthorityKeyIdentifier))
	}
	if o.AuthorityInfoAccess != nil {
		o.AuthorityInfoAccess.apply(ensure(set, IDAuthorityInfoAccess).(*AuthorityInfoAccess))
	}
	if o.KeyUsage != nil {
		ku := ensure(set, IDKeyUsage).(*KeyUsage)
		setCritical(&ku.Critical, o.KeyUsage.Critical)
		if o.KeyUsage.Usage != nil {
			ku.Usage = cloneStrings(o.KeyUsage.Usage)
		}
	}
	if o.ExtendedKeyUsage != nil {
		eku := ensure(set, IDExtendedKeyUsage).(*ExtendedKeyUsage)
		setCritical(&eku.Critical, o.ExtendedKeyUsage.Critical)
		if o.ExtendedKeyUsage.Usage != nil {
			eku.Usage = cloneStrings(o.ExtendedKeyUsage.Usage)
		}
	}
	if o.SubjectAltName != nil {
		o.SubjectAltName.apply(ensure(set, IDSubjectAltName).(*SubjectAlternativeName))
	}
	if o.CertificatePolicies != nil {
		o.CertificatePolicies.apply(ensure(set, IDCertificatePolicies).(*CertificatePolicies))
	}
	return nil
}

func (o *BasicConstraintsOverride) apply(bc *BasicConstraints) error {
	setCritical(&bc.Critical, o.Critical)
	if o.CA != nil {
		bc.CA = *o.CA
	}
	if o.PathLen != nil {
		return bc.SetPathLen(*o.PathLen)
	}
	return nil
}

func (o *CRLDistributionPointsOverride) apply(c *CRLDistributionPoints) {
	setCritical(&c.Critical, o.Critical)
	if o.URIs != nil {
		c.URIs = cloneStrings(o.URIs)
	}
}

func (o *SubjectKeyIdentifierOverride) apply(ski *SubjectKeyIdentifier) {
	setCritical(&ski.Critical, o.Critical)
	if o.Identifier != nil {
		ski.Identifier = *o.Identifier
	}
}

func (o *AuthorityKeyIdentifierOverride) apply(aki *AuthorityKeyIdentifier) {
	setCritical(&aki.Critical, o.Critical)
	if o.Identifier != nil {
		aki.Identifier = cloneStrings(o.Identifier)
	}
}

func (o *AuthorityInfoAccessOverride) apply(aia *AuthorityInfoAccess) {
	setCritical(&aia.Critical, o.Critical)
	if o.OCSP != nil {
		aia.OCSP = cloneStrings(o.OCSP)
	}
	if o.CAIssuers != nil {
		aia.CAIssuers = cloneStrings(o.CAIssuers)
	}
}

func (o *SubjectAltNameOverride) apply(san *SubjectAlternativeName) {
	setCritical(&san.Critical, o.Critical)
	if o.URIs != nil {
		san.URIs = cloneStrings(o.URIs)
	}
	if o.DNSNames != nil {
		san.DNSNames = cloneStrings(o.DNSNames)
	}
	if o.IPs != nil {
		san.IPs = cloneStrings(o.IPs)
	}
	if o.Emails != nil {
		san.Emails = cloneStrings(o.Emails)
	}
}

func (o *UserNoticeOverride) apply(cp *CertificatePolicies) {
	if o.ExplicitText != nil {
		cp.ExplicitText = *o.ExplicitText
	}
	if o.Organization != nil {
		cp.Organization = *o.Organization
	}
	if o.NoticeNumbers != nil {
		cp.NoticeNumbers = append([]int{}, o.NoticeNumbers...)
	}
}

func (o *CertificatePoliciesOverride) apply(cp *CertificatePolicies) {
	setCritical(&cp.Critical, o.Critical)
	if o.PolicyIdentifier != nil {
		cp.PolicyIdentifier = *o.PolicyIdentifier
	}
	if o.CPSURIs != nil {
		cp.CPSURIs = cloneStrings(o.CPSURIs)
	}
	o.UserNoticeOverride.apply(cp)
	if o.UserNotice != nil {
		o.UserNotice.apply(cp)
	}
}

func ensure(set Set, id string) Extension {
	ext, ok := set[id]
	if _, raw := ext.(*Raw); !ok || raw {
		ext, _ = New(id)
		set[id] = ext
	}
	return ext
}

func setCritical(dst *bool, critical *bool) {
	if critical != nil {
		*dst = *critical
	}
}
