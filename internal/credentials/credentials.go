package credentials

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fernet/fernet-go"
)

// Decryptor decrypts credentials stored as Fernet tokens in the
// follower_users table.
type Decryptor struct {
	keys []*fernet.Key
}

func NewDecryptor(encryptionKey string) (*Decryptor, error) {
	if encryptionKey == "" {
		return nil, fmt.Errorf("credentials encryption key not configured")
	}
	key, err := fernet.DecodeKey(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	return &Decryptor{keys: []*fernet.Key{key}}, nil
}

func (d *Decryptor) Decrypt(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("empty credential token")
	}
	// Negative TTL: stored credentials do not expire.
	msg := fernet.VerifyAndDecrypt([]byte(token), -1, d.keys)
	if msg == nil {
		return "", fmt.Errorf("credential token failed verification")
	}
	return string(msg), nil
}

// DeriveWalletAddress recovers the EVM address for a hex-encoded
// private key, matching the address the venue attributes fills to.
func DeriveWalletAddress(privateKeyHex string) (string, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	return crypto.PubkeyToAddress(pk.PublicKey).Hex(), nil
}
