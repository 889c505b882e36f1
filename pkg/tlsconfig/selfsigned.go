package tlsconfig

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

const (
	keySize        = 2048
	defaultTTL     = 24 * time.Hour
	defaultSubject = "mona-self-signed"
)

// SelfSigned generates an in-memory RSA key pair and a self-signed leaf
// certificate valid for hosts, returning the resulting tls.Certificate.
func SelfSigned(hosts ...string) (tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsconfig: generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsconfig: serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: defaultSubject},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(defaultTTL),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsconfig: create certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsconfig: parse certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// ServerConfig builds a tls.Config carrying a freshly generated
// self-signed certificate for hosts, suitable for a demo TCP listener.
func ServerConfig(hosts ...string) (*tls.Config, error) {
	cert, err := SelfSigned(hosts...)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientConfig builds a tls.Config that trusts exactly the given leaf
// certificate, for a test client dialing ServerConfig's listener without
// a shared CA.
func ClientConfig(serverCert tls.Certificate, serverName string) (*tls.Config, error) {
	if serverCert.Leaf == nil {
		leaf, err := x509.ParseCertificate(serverCert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("tlsconfig: parse server leaf: %w", err)
		}
		serverCert.Leaf = leaf
	}
	pool := x509.NewCertPool()
	pool.AddCert(serverCert.Leaf)
	return &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}, nil
}
