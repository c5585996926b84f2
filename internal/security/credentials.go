package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const credentialAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"

// CredentialLength is the length of generated placeholder credentials.
const CredentialLength = 12

// GenerateCredential returns a random alphanumeric credential. It exists
// only to satisfy the account store's non-null password invariant for
// provisioned accounts; it is never disclosed and never usable for direct
// sign-in. Sampling is uniform over the alphabet via crypto/rand.
func GenerateCredential() (string, error) {
	out := make([]byte, CredentialLength)
	max := big.NewInt(int64(len(credentialAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate credential: %w", err)
		}
		out[i] = credentialAlphabet[n.Int64()]
	}
	return string(out), nil
}
