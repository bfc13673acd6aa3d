package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/facebookgo/atomicfile"
	logging "github.com/ipfs/go-log/v2"
	p2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/crypto/sha3"
)

var log = logging.Logger("fleet-wallet")

// Errors
var (
	ErrInvalidCount  = errors.New("wallet count must not be negative")
	ErrInvalidSecret = errors.New("invalid private key")
)

const (
	// SecretPrefix starts every encoded private key.
	SecretPrefix = "0x"

	// PrivateKeySize is the length of a raw secp256k1 private key.
	PrivateKeySize = secp256k1.PrivKeyBytesLen

	// AddressSize is the length of a raw account address.
	AddressSize = 20
)

// Identity is one generated wallet.
type Identity struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

// PeerID returns the libp2p peer ID a node started with this private key announces.
func (id Identity) PeerID() (peer.ID, error) {
	raw, err := decodeSecret(id.PrivateKey)
	if err != nil {
		return "", err
	}
	sk, err := p2pcrypto.UnmarshalSecp256k1PrivateKey(raw)
	if err != nil {
		return "", fmt.Errorf("failed to load libp2p key: %w", err)
	}
	return peer.IDFromPrivateKey(sk)
}

// Generator creates identities from an entropy source.
type Generator struct {
	// Rand is the entropy source. crypto/rand is used when nil.
	Rand io.Reader
}

// Generate returns count independent identities using crypto/rand.
func Generate(count int) ([]Identity, error) {
	return Generator{}.Generate(count)
}

// Generate returns exactly count identities in generation order. Any failure of the
// entropy source aborts the whole batch.
func (g Generator) Generate(count int) ([]Identity, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	r := g.Rand
	if r == nil {
		r = rand.Reader
	}

	ids := make([]Identity, 0, count)
	for i := 0; i < count; i++ {
		key, err := secp256k1.GeneratePrivateKeyFromRand(r)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key %d: %w", i, err)
		}
		id := fromPrivateKey(key)
		log.Debugf("Generated wallet %d: %s", i, id.Address)
		ids = append(ids, id)
	}
	return ids, nil
}

// AddressFromSecret re-derives the checksummed address of an encoded private key.
func AddressFromSecret(secret string) (string, error) {
	raw, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return fromPrivateKey(secp256k1.PrivKeyFromBytes(raw)).Address, nil
}

func fromPrivateKey(key *secp256k1.PrivateKey) Identity {
	return Identity{
		Address:    ethereumAddress(key.PubKey()),
		PrivateKey: hexutil.Encode(key.Serialize()),
	}
}

// decodeSecret parses a 0x-prefixed private key and checks it is a valid scalar.
func decodeSecret(secret string) ([]byte, error) {
	if !strings.HasPrefix(secret, SecretPrefix) {
		return nil, fmt.Errorf("%w: missing %s prefix", ErrInvalidSecret, SecretPrefix)
	}
	raw, err := hexutil.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(raw) != PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSecret, PrivateKeySize, len(raw))
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidSecret)
	}
	return raw, nil
}

// ethereumAddress is keccak256(x || y)[12:] with the EIP-55 checksum applied.
func ethereumAddress(pub *secp256k1.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()

	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:])
	hash := h.Sum(nil)

	return eip55Checksum(hex.EncodeToString(hash[len(hash)-AddressSize:]))
}

// eip55Checksum upper-cases every hex letter whose keccak nibble is >= 8.
func eip55Checksum(addrHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(addrHex))
	hash := h.Sum(nil)

	var b strings.Builder
	b.Grow(len(SecretPrefix) + len(addrHex))
	b.WriteString(SecretPrefix)
	for i, c := range addrHex {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
			continue
		}
		nibble := hash[i/2] >> 4
		if i%2 == 1 {
			nibble = hash[i/2] & 0x0f
		}
		if nibble >= 8 {
			b.WriteRune(c - 32)
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Save writes the identities to path as an indented JSON array, replacing any
// existing file.
func Save(path string, ids []Identity) error {
	if ids == nil {
		ids = []Identity{}
	}
	data, err := json.MarshalIndent(ids, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode wallets: %w", err)
	}

	f, err := atomicfile.New(path, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Abort()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Infof("Saved %d wallets to %s", len(ids), path)
	return nil
}

// Load reads a wallet list written by Save.
func Load(path string) ([]Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ids []Identity
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return ids, nil
}
