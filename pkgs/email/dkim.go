package email

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"

	"github.com/emersion/go-msgauth/dkim"
)

// dkimHeaderKeys are the headers covered by the signature.
var dkimHeaderKeys = []string{"from", "to", "subject", "date", "message-id"}

// DKIMSigner signs outgoing test messages.
type DKIMSigner struct {
	Domain   string
	Selector string
	Key      crypto.Signer
}

// LoadDKIMSigner reads a PEM private key (PKCS#1 RSA or PKCS#8 RSA/Ed25519)
// from keyPath.
func LoadDKIMSigner(domain, selector, keyPath string) (*DKIMSigner, error) {
	if domain == "" || selector == "" {
		return nil, &ConfigError{Field: "sending.dkim", Value: domain + "/" + selector, Reason: "domain and selector are required"}
	}
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read DKIM key: %w", err)
	}
	key, err := parseDKIMKey(data)
	if err != nil {
		return nil, &ConfigError{Field: "sending.dkim.private_key", Value: keyPath, Reason: err.Error()}
	}
	return &DKIMSigner{Domain: domain, Selector: selector, Key: key}, nil
}

func parseDKIMKey(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("invalid PEM data")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %T", key)
	}
	return signer, nil
}

// Sign returns raw with a DKIM-Signature header prepended.
func (s *DKIMSigner) Sign(raw []byte) ([]byte, error) {
	opts := &dkim.SignOptions{
		Domain:     s.Domain,
		Selector:   s.Selector,
		Signer:     s.Key,
		HeaderKeys: dkimHeaderKeys,
	}

	var signed bytes.Buffer
	if err := dkim.Sign(&signed, bytes.NewReader(raw), opts); err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return signed.Bytes(), nil
}

// VerifyDKIM checks every DKIM signature in raw. lookupTXT resolves the
// selector records; nil uses DNS.
func VerifyDKIM(raw []byte, lookupTXT func(domain string) ([]string, error)) ([]*dkim.Verification, error) {
	if lookupTXT == nil {
		lookupTXT = net.LookupTXT
	}
	return dkim.VerifyWithOptions(bytes.NewReader(raw), &dkim.VerifyOptions{
		LookupTXT: lookupTXT,
	})
}
