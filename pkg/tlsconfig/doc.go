/*
Package tlsconfig builds a self-signed certificate and matching
tls.Config in memory, for tests and the demo TCP server.

Key and certificate generation follows the same x509.CreateCertificate
recipe used elsewhere for self-signed roots, scaled down to a single
leaf certificate with no separate CA: there is no rotation, no
persistence and no issuance workflow here, since key management is out
of scope for this runtime. Applications that need a real PKI should
install their own tls.Config on TCPClient instead of this package's.
*/
package tlsconfig
