package identity

import "errors"

var (
	// ErrFileNotFound is returned when a certificate or keystore path is missing.
	ErrFileNotFound = errors.New("credential file not found")

	// ErrEmptyKeystore is returned when a keystore directory holds no usable key file.
	ErrEmptyKeystore = errors.New("no key file found in keystore")

	// ErrMissingAdmin is returned when enrollment is attempted without a registrar identity.
	ErrMissingAdmin = errors.New("admin identity not found in wallet")
)

// EnrollOutcome reports what EnrollAppUser did.
type EnrollOutcome int

const (
	// Enrolled means a new identity was registered, enrolled and stored.
	Enrolled EnrollOutcome = iota
	// AlreadyEnrolled means an identity already existed under the label; nothing changed.
	AlreadyEnrolled
)

func (o EnrollOutcome) String() string {
	switch o {
	case Enrolled:
		return "enrolled"
	case AlreadyEnrolled:
		return "already_exists"
	default:
		return "unknown"
	}
}

// EnrollRequest describes the application identity to provision at the CA.
type EnrollRequest struct {
	Label       string
	AdminLabel  string
	Affiliation string
	Role        string
}

// Registration is what the certificate authority needs to register a client.
type Registration struct {
	EnrollmentID string
	Affiliation  string
	Role         string
}

// Enrollment is the credential material issued by the certificate authority.
type Enrollment struct {
	Certificate string
	PrivateKey  string
}
