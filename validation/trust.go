package validation

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cloudx-io/openalloc/allocapi"
)

// awsNitroRootCA is the AWS Nitro Enclaves root, P-384, valid until 2049-10-28.
// https://docs.aws.amazon.com/enclaves/latest/user/verify-root.html
const awsNitroRootCA = `-----BEGIN CERTIFICATE-----
MIICETCCAZagAwIBAgIRAPkxdWgbkK/hHUbMtOTn+FYwCgYIKoZIzj0EAwMwSTEL
MAkGA1UEBhMCVVMxDzANBgNVBAoMBkFtYXpvbjEMMAoGA1UECwwDQVdTMRswGQYD
VQQDDBJhd3Mubml0cm8tZW5jbGF2ZXMwHhcNMTkxMDI4MTMyODA1WhcNNDkxMDI4
MTQyODA1WjBJMQswCQYDVQQGEwJVUzEPMA0GA1UECgwGQW1hem9uMQwwCgYDVQQL
DANBV1MxGzAZBgNVBAMMEmF3cy5uaXRyby1lbmNsYXZlczB2MBAGByqGSM49AgEG
BSuBBAAiA2IABPwCVOumCMHzaHDimtqQvkY4MpJzbolL//Zy2YlES1BR5TSksfbb
48C8WBoyt7F2Bw7eEtaaP+ohG2bnUs990d0JX28TcPQXCEPZ3BABIeTPYwEoCWZE
h8l5YoQwTcU/9KNCMEAwDwYDVR0TAQH/BAUwAwEB/zAdBgNVHQ4EFgQUkCW1DdkF
R+eWw5b6cp3PmanfS5YwDgYDVR0PAQH/BAQDAgGGMAoGCCqGSM49BAMDA2kAMGYC
MQCjfy+Rocm9Xue4YnwWmNJVA44fA0P5W2OpYow9OYCVRaEevL8uO1XYru5xtMPW
rfMCMQCi85sWBbJwKKXdS6BptQFuZbT73o/gBh1qUxl/nNr12UO8Yfwr6wPLb+6N
IwLz3/Y=
-----END CERTIFICATE-----`

// NitroRoots returns a pool holding only the AWS Nitro root CA.
func NitroRoots() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(awsNitroRootCA)) {
		return nil, fmt.Errorf("failed to parse AWS Nitro root CA")
	}
	return pool, nil
}

// pinFile is the on-disk form of Verifier.KnownPCRs. JSON pin files are
// read through the YAML decoder as well.
type pinFile struct {
	PCRSets []PCRSet `yaml:"pcr_sets"`
}

// LoadVerifier builds a Verifier from optional trust files. An empty
// rootsPath keeps the AWS Nitro root; an empty pinsPath disables pinning.
func LoadVerifier(rootsPath, pinsPath string) (*Verifier, error) {
	v := &Verifier{}
	if rootsPath != "" {
		if err := v.LoadRoots(rootsPath); err != nil {
			return nil, err
		}
	}
	if pinsPath != "" {
		if err := v.LoadPCRs(pinsPath); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// LoadRoots replaces the trusted roots with every certificate in a PEM file.
func (v *Verifier) LoadRoots(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read roots: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return fmt.Errorf("no certificates found in %s", path)
	}
	v.Roots = pool
	return nil
}

// LoadPCRs replaces the pinned measurements with the sets in a YAML or
// JSON pin file. A file without sets is an error, since it would silently
// turn pinning off.
func (v *Verifier) LoadPCRs(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read PCR pins: %w", err)
	}

	var pins pinFile
	if err := yaml.Unmarshal(data, &pins); err != nil {
		return fmt.Errorf("parse PCR pins %s: %w", path, err)
	}
	if len(pins.PCRSets) == 0 {
		return fmt.Errorf("no PCR sets in %s", path)
	}

	v.KnownPCRs = pins.PCRSets
	return nil
}

// matchPCRs returns the index of the first pinned set equal to pcrs.
func (v *Verifier) matchPCRs(pcrs allocapi.PCRs) (int, bool) {
	for i, set := range v.KnownPCRs {
		if set.PCR0 == pcrs.ImageFileHash && set.PCR1 == pcrs.KernelHash && set.PCR2 == pcrs.ApplicationHash {
			return i, true
		}
	}
	return -1, false
}

// verifyChain checks the document's signing certificate against the
// verifier's roots through its CA bundle. Validity is judged at the
// attestation timestamp, so a stored result still verifies after the
// enclave's short-lived certificate has expired.
func (v *Verifier) verifyChain(doc allocapi.AttestationDoc) error {
	roots, err := v.roots()
	if err != nil {
		return err
	}

	leaf, err := parseCertificate(doc.Certificate)
	if err != nil {
		return fmt.Errorf("signing certificate: %w", err)
	}

	intermediates := x509.NewCertPool()
	for i, entry := range doc.CABundle {
		ca, err := parseCertificate(entry)
		if err != nil {
			return fmt.Errorf("CA bundle entry %d: %w", i, err)
		}
		intermediates.AddCert(ca)
	}

	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   doc.Timestamp,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("chain does not verify at %s: %w", doc.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), err)
	}
	return nil
}

// parseCertificate decodes a base64 DER certificate as carried in Nitro documents.
func parseCertificate(b64 string) (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert, nil
}
