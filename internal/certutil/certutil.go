// Package certutil provides certificate fingerprinting, pool building,
// and self-signed test-fixture generation for the session core's TLS
// carriers. The core itself only ever dials, never listens, so the
// certificate-authority and mutual-TLS signing machinery a mesh server
// would need has no home here; what remains is pinning a dialed
// datacenter's certificate against a known fingerprint and generating
// throwaway certificates for local test servers.
package certutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"strings"
	"time"
)

// CertOptions configures a self-signed test-fixture certificate.
type CertOptions struct {
	CommonName  string
	ValidFor    time.Duration
	DNSNames    []string
	IPAddresses []net.IP
}

// DefaultTestCertOptions returns options for a localhost test-fixture
// certificate, suitable for a local TLS test server a carrier dials in
// an integration test.
func DefaultTestCertOptions(commonName string) CertOptions {
	return CertOptions{
		CommonName:  commonName,
		ValidFor:    24 * time.Hour,
		DNSNames:    []string{commonName, "localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}
}

// GeneratedCert holds a generated certificate and its private key.
type GeneratedCert struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
	CertPEM     []byte
	KeyPEM      []byte
}

// Fingerprint returns the SHA-256 fingerprint of the certificate.
func (gc *GeneratedCert) Fingerprint() string {
	return Fingerprint(gc.Certificate)
}

// TLSCertificate returns a tls.Certificate for use as a test server's
// server certificate.
func (gc *GeneratedCert) TLSCertificate() (tls.Certificate, error) {
	return tls.X509KeyPair(gc.CertPEM, gc.KeyPEM)
}

// GenerateTestCert generates a self-signed, ECDSA P-256 certificate for
// local test fixtures only; it is never used for a real datacenter dial.
func GenerateTestCert(opts CertOptions) (*GeneratedCert, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("certutil: generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("certutil: generate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      pkix.Name{CommonName: opts.CommonName},
		NotBefore:    now,
		NotAfter:     now.Add(opts.ValidFor),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     opts.DNSNames,
		IPAddresses:  opts.IPAddresses,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("certutil: create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("certutil: parse certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("certutil: marshal private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return &GeneratedCert{
		Certificate: cert,
		PrivateKey:  privateKey,
		CertPEM:     certPEM,
		KeyPEM:      keyPEM,
	}, nil
}

// Fingerprint calculates the SHA-256 fingerprint of a certificate, used
// to pin a dialed datacenter endpoint against a known-good value.
func Fingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// FingerprintFromPEM calculates the fingerprint of a PEM-encoded certificate.
func FingerprintFromPEM(certPEM []byte) (string, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return "", fmt.Errorf("certutil: decode certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("certutil: parse certificate: %w", err)
	}
	return Fingerprint(cert), nil
}

// VerifyFingerprint reports whether cert matches expectedFingerprint.
func VerifyFingerprint(cert *x509.Certificate, expectedFingerprint string) bool {
	return strings.EqualFold(Fingerprint(cert), expectedFingerprint)
}

// CertInfo is a display-friendly summary of a certificate, surfaced by
// the inspect CLI subcommand.
type CertInfo struct {
	Subject      string
	Issuer       string
	SerialNumber string
	NotBefore    time.Time
	NotAfter     time.Time
	Fingerprint  string
	DNSNames     []string
	IPAddresses  []string
}

// GetCertInfo extracts a CertInfo from a certificate.
func GetCertInfo(cert *x509.Certificate) CertInfo {
	info := CertInfo{
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		SerialNumber: cert.SerialNumber.Text(16),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		Fingerprint:  Fingerprint(cert),
		DNSNames:     cert.DNSNames,
	}
	for _, ip := range cert.IPAddresses {
		info.IPAddresses = append(info.IPAddresses, ip.String())
	}
	return info
}

// IsExpired reports whether cert's validity window has passed.
func IsExpired(cert *x509.Certificate) bool {
	return time.Now().After(cert.NotAfter)
}

// IsExpiringSoon reports whether cert expires within the given window.
func IsExpiringSoon(cert *x509.Certificate, within time.Duration) bool {
	return time.Now().Add(within).After(cert.NotAfter)
}

// CreateCertPool builds an x509.CertPool from one or more PEM-encoded
// certificates held in memory. transport.NewClientTLSConfig's caFile
// loading uses CreateCertPoolFromFiles instead.
func CreateCertPool(certPEMs ...[]byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, certPEM := range certPEMs {
		if !pool.AppendCertsFromPEM(certPEM) {
			return nil, fmt.Errorf("certutil: add certificate to pool")
		}
	}
	return pool, nil
}

// CreateCertPoolFromFiles builds an x509.CertPool from PEM files on disk.
func CreateCertPoolFromFiles(certPaths ...string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, path := range certPaths {
		certPEM, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("certutil: read %s: %w", path, err)
		}
		if !pool.AppendCertsFromPEM(certPEM) {
			return nil, fmt.Errorf("certutil: add certificate from %s to pool", path)
		}
	}
	return pool, nil
}
