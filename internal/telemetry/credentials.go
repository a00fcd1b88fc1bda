package telemetry

import (
	"crypto/sha256"
	"fmt"
	"net"
	"strconv"
)

// Credentials holds everything needed to open an authenticated channel to a
// remote host. It is a plain value: the core never stores or persists it.
type Credentials struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte
	Passphrase string
}

// Address returns the host:port string for dialing.
func (c Credentials) Address() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// SessionKey derives the pool cache key for these credentials.
// Identical credentials always map to the same key: the key is built from
// host, port, user, and a fingerprint of the private key material, so the
// same user connecting to the same endpoint with a different key gets a
// separate session.
func (c Credentials) SessionKey() string {
	h := sha256.Sum256(c.PrivateKey)
	return fmt.Sprintf("%s@%s/%x", c.User, c.Address(), h[:8])
}
