package wallet

// TypeX509 is the only credential type the network accepts.
const TypeX509 = "X.509"

// Identity is the credential material and membership data used to
// authenticate against the network.
type Identity struct {
	Label       string
	MSPID       string
	Certificate string
	PrivateKey  string
	Type        string
}

// Valid reports whether the identity carries everything a signer needs.
func (i Identity) Valid() bool {
	return i.MSPID != "" && i.Certificate != "" && i.PrivateKey != ""
}
