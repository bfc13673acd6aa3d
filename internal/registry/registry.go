// Package registry holds the RPC endpoint table embedded into every node descriptor.
// The table is plain configuration data: it is never computed and never mutated once a
// run has started.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	ErrEmptyRegistry   = errors.New("registry has no networks")
	ErrDuplicateID     = errors.New("duplicate network id")
	ErrMissingEndpoint = errors.New("network has no rpc endpoint")
)

// DefaultChunkSize is the block batch size used for every default network.
const DefaultChunkSize = 100

// Network is a single chain entry of the registry.
type Network struct {
	ID           string   `yaml:"id"`
	RPC          string   `yaml:"rpc"`
	FallbackRPCs []string `yaml:"fallback_rpcs,omitempty"`
	ChainID      int64    `yaml:"chain_id"`
	Name         string   `yaml:"network"`
	ChunkSize    int      `yaml:"chunk_size"`
}

// record is the JSON shape the node expects for one network.
type record struct {
	RPC          string   `json:"rpc"`
	FallbackRPCs []string `json:"fallbackRPCs,omitempty"`
	ChainID      int64    `json:"chainId"`
	Name         string   `json:"network"`
	ChunkSize    int      `json:"chunkSize"`
}

// Registry is an ordered list of networks. Order is preserved when serialized.
type Registry []Network

// Default returns a fresh copy of the built-in network table.
func Default() Registry {
	return Registry{
		{
			ID:  "1",
			RPC: "https://ethereum-rpc.publicnode.com",
			FallbackRPCs: []string{
				"https://rpc.ankr.com/eth",
				"https://1rpc.io/eth",
				"https://eth.api.onfinality.io/public",
			},
			ChainID:   1,
			Name:      "mainnet",
			ChunkSize: DefaultChunkSize,
		},
		{
			ID:  "10",
			RPC: "https://mainnet.optimism.io",
			FallbackRPCs: []string{
				"https://optimism-mainnet.public.blastapi.io",
				"https://rpc.ankr.com/optimism",
				"https://optimism-rpc.publicnode.com",
			},
			ChainID:   10,
			Name:      "optimism",
			ChunkSize: DefaultChunkSize,
		},
		{
			ID:  "137",
			RPC: "https://polygon-rpc.com/",
			FallbackRPCs: []string{
				"https://polygon-mainnet.public.blastapi.io",
				"https://1rpc.io/matic",
				"https://rpc.ankr.com/polygon",
			},
			ChainID:   137,
			Name:      "polygon",
			ChunkSize: DefaultChunkSize,
		},
		{
			ID:  "23294",
			RPC: "https://sapphire.oasis.io",
			FallbackRPCs: []string{
				"https://1rpc.io/oasis/sapphire",
			},
			ChainID:   23294,
			Name:      "sapphire",
			ChunkSize: DefaultChunkSize,
		},
		{
			ID:        "23295",
			RPC:       "https://testnet.sapphire.oasis.io",
			ChainID:   23295,
			Name:      "sapphire-testnet",
			ChunkSize: DefaultChunkSize,
		},
		{
			ID:  "11155111",
			RPC: "https://eth-sepolia.public.blastapi.io",
			FallbackRPCs: []string{
				"https://1rpc.io/sepolia",
				"https://eth-sepolia.g.alchemy.com/v2/demo",
			},
			ChainID:   11155111,
			Name:      "sepolia",
			ChunkSize: DefaultChunkSize,
		},
		{
			ID:  "11155420",
			RPC: "https://sepolia.optimism.io",
			FallbackRPCs: []string{
				"https://endpoints.omniatech.io/v1/op/sepolia/public",
				"https://optimism-sepolia.blockpi.network/v1/rpc/public",
			},
			ChainID:   11155420,
			Name:      "optimism-sepolia",
			ChunkSize: DefaultChunkSize,
		},
	}
}

// Lookup returns the network registered under id.
func (r Registry) Lookup(id string) (Network, bool) {
	for _, n := range r {
		if n.ID == id {
			return n, true
		}
	}
	return Network{}, false
}

// Validate checks that the registry is usable as a node RPC table.
func (r Registry) Validate() error {
	if len(r) == 0 {
		return ErrEmptyRegistry
	}
	seen := make(map[string]struct{}, len(r))
	for _, n := range r {
		if _, ok := seen[n.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
		}
		seen[n.ID] = struct{}{}
		if n.RPC == "" {
			return fmt.Errorf("%w: %q", ErrMissingEndpoint, n.ID)
		}
	}
	return nil
}

// MarshalJSON encodes the registry as an object keyed by network id, in list order.
func (r Registry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encode(n.ID)
		if err != nil {
			return nil, err
		}
		val, err := encode(record{
			RPC:          n.RPC,
			FallbackRPCs: n.FallbackRPCs,
			ChainID:      n.ChainID,
			Name:         n.Name,
			ChunkSize:    n.ChunkSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode network %q: %w", n.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object form produced by MarshalJSON. Key order is kept.
func (r *Registry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("registry: expected object, got %v", tok)
	}

	var out Registry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("registry: expected key, got %v", tok)
		}
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("registry: network %q: %w", id, err)
		}
		out = append(out, Network{
			ID:           id,
			RPC:          rec.RPC,
			FallbackRPCs: rec.FallbackRPCs,
			ChainID:      rec.ChainID,
			Name:         rec.Name,
			ChunkSize:    rec.ChunkSize,
		})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// JSON returns the serialized registry as the string embedded in descriptors.
// Items are separated by ", " and keys from values by ": ".
func (r Registry) JSON() (string, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return "", err
	}
	return spaced(data), nil
}

// encode marshals v without escaping <, > and &, which appear in endpoint URLs.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// spaced inserts a space after every separator of compact JSON. String
// contents are copied unchanged.
func spaced(compact []byte) string {
	var b strings.Builder
	b.Grow(len(compact) + len(compact)/8)

	inString, escaped := false, false
	for _, c := range compact {
		b.WriteByte(c)
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && (c == ',' || c == ':'):
			b.WriteByte(' ')
		}
	}
	return b.String()
}
