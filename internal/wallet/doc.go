// Package wallet generates the secp256k1 identities handed to provisioned nodes.
//
// # Identities
//
// Each identity is an Ethereum-style account:
//
//   - PrivateKey: the 32-byte secp256k1 scalar, hex encoded with a 0x prefix.
//   - Address: keccak256 of the uncompressed public key, last 20 bytes, with the
//     EIP-55 mixed-case checksum.
//
// The node started with a private key also derives its libp2p peer ID from it;
// Identity.PeerID returns that ID so operators can match peers to wallets.
//
// # Storage
//
// Save writes the list as an indented JSON array of {"address", "private_key"}
// objects. The file is replaced atomically and created with mode 0600. Nothing
// else about key storage is hardened.
//
// # Usage
//
//	ids, _ := wallet.Generate(4)
//	_ = wallet.Save("wallets.json", ids)
//
//	addr, _ := wallet.AddressFromSecret(ids[0].PrivateKey)
package wallet
