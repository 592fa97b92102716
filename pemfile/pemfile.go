package pemfile

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"time"

	"github.com/zond/wizmud"

	gossh "golang.org/x/crypto/ssh"
)

// KeyParams locates the host key shared by the SSH server and the HTTPS
// admin surface, and the public halves derived from it.
type KeyParams struct {
	Hostname      string
	KeyPath       string
	SSHPubKeyPath string
	HTTPSCertPath string
	// Bits defaults to 4096.
	Bits int
}

func (k KeyParams) bits() int {
	if k.Bits == 0 {
		return 4096
	}
	return k.Bits
}

// Ensure generates the key files unless the private key already exists.
// It reports whether it generated anything.
func (k KeyParams) Ensure() (bool, error) {
	if _, err := os.Stat(k.KeyPath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, wizmud.WithStack(err)
	}
	if err := k.Generate(); err != nil {
		return false, err
	}
	return true, nil
}

// HostKey returns the PEM bytes and SSH signer of the private key.
func (k KeyParams) HostKey() ([]byte, gossh.Signer, error) {
	pemBytes, err := os.ReadFile(k.KeyPath)
	if err != nil {
		return nil, nil, wizmud.WithStack(err)
	}
	signer, err := gossh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, nil, wizmud.WithStack(err)
	}
	return pemBytes, signer, nil
}

func (k KeyParams) Generate() error {
	privateKey, err := rsa.GenerateKey(rand.Reader, k.bits())
	if err != nil {
		return wizmud.WithStack(err)
	}
	keyBytes := x509.MarshalPKCS1PrivateKey(privateKey)

	if err := os.WriteFile(k.KeyPath, pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: keyBytes,
		}),
		0600,
	); err != nil {
		return wizmud.WithStack(err)
	}

	pub, err := gossh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return wizmud.WithStack(err)
	}
	if err := os.WriteFile(k.SSHPubKeyPath, gossh.MarshalAuthorizedKey(pub), 0600); err != nil {
		return wizmud.WithStack(err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: k.Hostname},
		DNSNames:              []string{k.Hostname},
		SignatureAlgorithm:    x509.SHA256WithRSA,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(100, 0, 0),
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyAgreement | x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return wizmud.WithStack(err)
	}
	if err := os.WriteFile(k.HTTPSCertPath, pem.EncodeToMemory(
		&pem.Block{
			Type:  "CERTIFICATE",
			Bytes: derBytes,
		},
	), 0600); err != nil {
		return wizmud.WithStack(err)
	}

	return nil
}
