package model

import (
	"fmt"
)

// ApplicationStatus is the state of a CertificateApplication in the
// issuance workflow: pending -> approved|rejected -> issued
type ApplicationStatus int

// Constants for ApplicationStatus
const (
	ApplicationStatusPending ApplicationStatus = iota
	ApplicationStatusApproved
	ApplicationStatusRejected
	ApplicationStatusIssued
)

// String returns the canonical string representation for the status.
func (s ApplicationStatus) String() string {
	switch s {
	case ApplicationStatusPending:
		return "pending"
	case ApplicationStatusApproved:
		return "approved"
	case ApplicationStatusRejected:
		return "rejected"
	case ApplicationStatusIssued:
		return "issued"
	default:
		return "unknown"
	}
}

// Valid reports whether the status is one of the defined constants.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusIssued:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes the status as a JSON string.
func (s ApplicationStatus) MarshalJSON() ([]byte, error) {
	return []byte("\"" + s.String() + "\""), nil
}

// UnmarshalJSON decodes the status from a JSON string.
func (s *ApplicationStatus) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("status must be a JSON string")
	}
	ps, err := ParseApplicationStatus(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*s = ps
	return nil
}

// ParseApplicationStatus converts a string to an ApplicationStatus, returning
// an error for invalid values.
func ParseApplicationStatus(v string) (ApplicationStatus, error) {
	switch v {
	case "pending":
		return ApplicationStatusPending, nil
	case "approved":
		return ApplicationStatusApproved, nil
	case "rejected":
		return ApplicationStatusRejected, nil
	case "issued":
		return ApplicationStatusIssued, nil
	}
	return 0, fmt.Errorf("invalid status: %s", v)
}
