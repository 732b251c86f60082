package extensions

import (
	"encoding/asn1"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

const (
	SectionCustomPolicies = "custom_policies"
	SectionNotice         = "notice"
)

var (
	oidQualifierCPS        = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 2, 1}
	oidQualifierUserNotice = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 2, 2}
)

// CertificatePolicies carries a single policy with optional CPS pointers
// and a user notice. Its value references the custom_policies and notice
// configuration sections. RFC 5280 4.2.1.4.
type CertificatePolicies struct {
	Critical         bool
	PolicyIdentifier string
	CPSURIs          []string
	ExplicitText     string
	Organization     string
	NoticeNumbers    []int
}

type policyInformation struct {
	Policy     asn1.ObjectIdentifier
	Qualifiers []policyQualifier `asn1:"optional"`
}

type policyQualifier struct {
	ID        asn1.ObjectIdentifier
	Qualifier asn1.RawValue
}

type userNotice struct {
	NoticeRef    noticeReference `asn1:"optional"`
	ExplicitText string          `asn1:"optional,utf8"`
}

type noticeReference struct {
	Organization  string `asn1:"ia5"`
	NoticeNumbers []int
}

func NewCertificatePolicies() *CertificatePolicies {
	return &CertificatePolicies{}
}

func (cp *CertificatePolicies) ID() string {
	return IDCertificatePolicies
}

func (cp *CertificatePolicies) IsCritical() bool {
	return cp.Critical
}

func (cp *CertificatePolicies) hasNotice() bool {
	return cp.ExplicitText != "" || cp.Organization != "" || len(cp.NoticeNumbers) > 0
}

func (cp *CertificatePolicies) hasContent() bool {
	return cp.PolicyIdentifier != "" || len(cp.CPSURIs) > 0 || cp.hasNotice()
}

func (cp *CertificatePolicies) Validate(errs *validation.Errors) {
	if !cp.hasContent() {
		return
	}
	if cp.PolicyIdentifier == "" {
		errs.Add("policy_identifier", "can't be blank")
	} else if _, err := parseOID(cp.PolicyIdentifier); err != nil {
		errs.Add("policy_identifier", "must be a dotted object identifier")
	}
	for _, uri := range cp.CPSURIs {
		if !validURI(uri) {
			errs.Addf("cps_uris", "contains an invalid URI %q", uri)
		}
	}
	if len(cp.NoticeNumbers) > 0 && cp.Organization == "" {
		errs.Add("organization", "is required with notice_numbers")
	}
	for _, number := range cp.NoticeNumbers {
		if number < 0 {
			errs.Add("notice_numbers", "must be non-negative")
			break
		}
	}
}

// ConfigSections returns the custom_policies and notice sections referenced
// by String.
func (cp *CertificatePolicies) ConfigSections() Sections {
	sections := Sections{}
	policies := map[string]string{}
	if cp.PolicyIdentifier != "" {
		policies["policyIdentifier"] = cp.PolicyIdentifier
	}
	for i, uri := range cp.CPSURIs {
		policies[fmt.Sprintf("CPS.%d", i)] = uri
	}
	if cp.hasNotice() {
		notice := map[string]string{}
		if cp.ExplicitText != "" {
			notice["explicitText"] = cp.ExplicitText
		}
		if cp.Organization != "" {
			notice["organization"] = cp.Organization
		}
		if len(cp.NoticeNumbers) > 0 {
			notice["noticeNumbers"] = joinInts(cp.NoticeNumbers)
		}
		policies["userNotice.1"] = "@" + SectionNotice
		sections[SectionNotice] = notice
	}
	if len(policies) > 0 {
		sections[SectionCustomPolicies] = policies
	}
	return sections
}

func (cp *CertificatePolicies) String() string {
	if !cp.hasContent() {
		return ""
	}
	return "ia5org,@" + SectionCustomPolicies
}

func (cp *CertificatePolicies) Equal(other Extension) bool {
	o, ok := other.(*CertificatePolicies)
	if !ok {
		return false
	}
	if len(cp.NoticeNumbers) != len(o.NoticeNumbers) {
		return false
	}
	for i := range cp.NoticeNumbers {
		if cp.NoticeNumbers[i] != o.NoticeNumbers[i] {
			return false
		}
	}
	return cp.Critical == o.Critical &&
		cp.PolicyIdentifier == o.PolicyIdentifier &&
		equalStrings(cp.CPSURIs, o.CPSURIs) &&
		cp.ExplicitText == o.ExplicitText &&
		cp.Organization == o.Organization
}

func (cp *CertificatePolicies) Clone() Extension {
	clone := *cp
	clone.CPSURIs = cloneStrings(cp.CPSURIs)
	if cp.NoticeNumbers != nil {
		clone.NoticeNumbers = append([]int{}, cp.NoticeNumbers...)
	}
	return &clone
}

func (cp *CertificatePolicies) marshal(ctx *Context) ([]byte, error) {
	oid, err := parseOID(cp.PolicyIdentifier)
	if err != nil {
		return nil, err
	}
	policy := policyInformation{Policy: oid}
	for _, uri := range cp.CPSURIs {
		der, err := asn1.MarshalWithParams(uri, "ia5")
		if err != nil {
			return nil, err
		}
		policy.Qualifiers = append(policy.Qualifiers, policyQualifier{
			ID:        oidQualifierCPS,
			Qualifier: asn1.RawValue{FullBytes: der},
		})
	}
	if cp.hasNotice() {
		notice := userNotice{ExplicitText: cp.ExplicitText}
		if cp.Organization != "" {
			notice.NoticeRef = noticeReference{
				Organization:  cp.Organization,
				NoticeNumbers: cp.NoticeNumbers,
			}
		} else if len(cp.NoticeNumbers) > 0 {
			return nil, fmt.Errorf("%w: notice numbers require an organization", ErrInvalidValue)
		}
		der, err := asn1.Marshal(notice)
		if err != nil {
			return nil, err
		}
		policy.Qualifiers = append(policy.Qualifiers, policyQualifier{
			ID:        oidQualifierUserNotice,
			Qualifier: asn1.RawValue{FullBytes: der},
		})
	}
	return asn1.Marshal([]policyInformation{policy})
}

// ParseCertificatePolicies parses "ia5org,@custom_policies" using the
// referenced configuration sections. A bare dotted object identifier is
// accepted as the policy identifier.
func ParseCertificatePolicies(value string, critical bool, sections Sections) (*CertificatePolicies, error) {
	cp := &CertificatePolicies{Critical: critical}
	for _, token := range splitList(value) {
		switch {
		case strings.EqualFold(token, "ia5org"):
		case strings.HasPrefix(token, "@"):
			section, ok := sections[strings.TrimPrefix(token, "@")]
			if !ok {
				return nil, fmt.Errorf("%w: missing section %q", ErrInvalidValue, token)
			}
			if err := cp.parsePolicySection(section, sections); err != nil {
				return nil, err
			}
		default:
			if _, err := parseOID(token); err != nil {
				return nil, err
			}
			cp.PolicyIdentifier = token
		}
	}
	return cp, nil
}

func (cp *CertificatePolicies) parsePolicySection(section map[string]string, sections Sections) error {
	cps := map[int]string{}
	for key, val := range section {
		name, index, _ := strings.Cut(key, ".")
		switch name {
		case "policyIdentifier":
			if _, err := parseOID(val); err != nil {
				return err
			}
			cp.PolicyIdentifier = val
		case "CPS":
			i, err := strconv.Atoi(index)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidValue, key)
			}
			cps[i] = val
		case "userNotice":
			notice, ok := sections[strings.TrimPrefix(val, "@")]
			if !ok {
				return fmt.Errorf("%w: missing section %q", ErrInvalidValue, val)
			}
			if err := cp.parseNoticeSection(notice); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown policy key %q", ErrInvalidValue, key)
		}
	}
	indexes := make([]int, 0, len(cps))
	for i := range cps {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		cp.CPSURIs = append(cp.CPSURIs, cps[i])
	}
	return nil
}

func (cp *CertificatePolicies) parseNoticeSection(notice map[string]string) error {
	for key, val := range notice {
		switch key {
		case "explicitText":
			cp.ExplicitText = val
		case "organization":
			cp.Organization = val
		case "noticeNumbers":
			numbers, err := ParseNoticeNumbers(val)
			if err != nil {
				return err
			}
			cp.NoticeNumbers = numbers
		default:
			return fmt.Errorf("%w: unknown notice key %q", ErrInvalidValue, key)
		}
	}
	return nil
}

// ParseNoticeNumbers parses a comma separated list of notice numbers,
// ex: "1,2,3,4".
func ParseNoticeNumbers(value string) ([]int, error) {
	parts := splitList(value)
	numbers := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: notice number %q", ErrInvalidValue, part)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

func describeCertificatePolicies(der []byte) (string, Sections, error) {
	var policies []policyInformation
	if err := unmarshalStrict(der, &policies, ""); err != nil {
		return "", nil, err
	}
	// several policies, or qualifiers the typed form orders or encodes
	// differently, are left to the caller as DER
	if len(policies) != 1 {
		return "", nil, fmt.Errorf("%w: %d policies", ErrUnsupported, len(policies))
	}
	cp := &CertificatePolicies{PolicyIdentifier: policies[0].Policy.String()}
	notices := 0
	for _, qualifier := range policies[0].Qualifiers {
		switch {
		case qualifier.ID.Equal(oidQualifierCPS):
			var uri string
			if err := unmarshalStrict(qualifier.Qualifier.FullBytes, &uri, "ia5"); err != nil {
				return "", nil, fmt.Errorf("%w: %s", ErrUnsupported, err)
			}
			cp.CPSURIs = append(cp.CPSURIs, uri)
		case qualifier.ID.Equal(oidQualifierUserNotice):
			notices++
			if notices > 1 {
				return "", nil, fmt.Errorf("%w: multiple user notices", ErrUnsupported)
			}
			var notice userNotice
			if err := unmarshalStrict(qualifier.Qualifier.FullBytes, &notice, ""); err != nil {
				return "", nil, fmt.Errorf("%w: %s", ErrUnsupported, err)
			}
			cp.ExplicitText = notice.ExplicitText
			cp.Organization = notice.NoticeRef.Organization
			if len(notice.NoticeRef.NoticeNumbers) > 0 {
				cp.NoticeNumbers = notice.NoticeRef.NoticeNumbers
			}
		default:
			return "", nil, fmt.Errorf("%w: policy qualifier %s", ErrUnsupported, qualifier.ID)
		}
	}
	if err := checkReencode(cp, der); err != nil {
		return "", nil, err
	}
	return cp.String(), cp.ConfigSections(), nil
}

func joinInts(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
