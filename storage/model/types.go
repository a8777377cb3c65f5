package model

import (
	"fmt"
)

// CertificateType categorizes a certificate. The built-in types can be
// extended through the configuration.
type CertificateType string

// Built-in certificate types
const (
	CertificateTypeTraining      CertificateType = "training"
	CertificateTypeQualification CertificateType = "qualification"
	CertificateTypeSkill         CertificateType = "skill"
	CertificateTypeSafety        CertificateType = "safety"
)

// BuiltinCertificateTypes lists the certificate types that are always known
var BuiltinCertificateTypes = []CertificateType{
	CertificateTypeTraining,
	CertificateTypeQualification,
	CertificateTypeSkill,
	CertificateTypeSafety,
}

// VerificationMethod is the way a verification attempt identified the
// certificate
type VerificationMethod string

// Constants for VerificationMethod
const (
	VerificationMethodCertificateNumber VerificationMethod = "certificate_number"
	VerificationMethodVerificationCode  VerificationMethod = "verification_code"
	VerificationMethodQRCode            VerificationMethod = "qr_code"
)

// ParseVerificationMethod converts a string to a VerificationMethod
func ParseVerificationMethod(v string) (VerificationMethod, error) {
	switch m := VerificationMethod(v); m {
	case VerificationMethodCertificateNumber, VerificationMethodVerificationCode, VerificationMethodQRCode:
		return m, nil
	}
	return "", fmt.Errorf("invalid verification method: %s", v)
}

// AuditDecision is the outcome recorded in a CertificateAudit
type AuditDecision string

// Constants for AuditDecision
const (
	AuditDecisionApproved AuditDecision = "approved"
	AuditDecisionRejected AuditDecision = "rejected"
)
