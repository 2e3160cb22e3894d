// Package addr implements deterministic account address derivation.
//
// Every account in the treasury (fund, vault, join escrow, proposal) lives
// at an address derived from a seed tuple. Re-deriving from the same seeds
// always yields the same address, which lets any client locate state
// without an index and lets the host detect address-substitution attempts
// by re-deriving and comparing against stored seed values.
package addr

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for derived account addresses.
// Version suffix enables future algorithm migration.
const domainAccount = "treasury/account/v1"

// Seed prefixes for the sub-account kinds. The fund itself uses no prefix;
// its seeds are (handle, owner), matching the original client convention.
const (
	seedVaultTokenAccount = "token_account"
	seedVaultTokenVault   = "token_vault"
	seedJoin              = "join"
	seedProposal          = "proposal"
)

// VaultScheme selects which seed rule derives a fund's vault address.
// Deployments must pick exactly one scheme and use it consistently;
// mixing schemes would make the vault unreachable.
type VaultScheme string

const (
	// SchemeTokenAccount derives the vault via the generic
	// token-account rule: ("token_account", fund).
	SchemeTokenAccount VaultScheme = seedVaultTokenAccount
	// SchemeTokenVault derives the vault via an explicit
	// "token_vault"-seeded sub-account: ("token_vault", fund).
	SchemeTokenVault VaultScheme = seedVaultTokenVault
)

// Valid reports whether the scheme is one of the known vault seed rules.
func (s VaultScheme) Valid() bool {
	return s == SchemeTokenAccount || s == SchemeTokenVault
}

// Address is a derived 32-byte account address.
type Address [32]byte

// String returns the hex encoding of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Parse decodes a hex-encoded address string.
func Parse(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("parse address: want %d bytes, got %d", len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Derive computes the address for a seed tuple.
//
// The hash input is the domain prefix, a null separator, then each seed
// as a little-endian uint32 length followed by the seed bytes. The length
// prefix prevents boundary ambiguity between adjacent seeds, so
// ("ab","c") and ("a","bc") derive distinct addresses.
func Derive(seeds ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(domainAccount))
	h.Write([]byte{0x00})

	var lenBuf [4]byte
	for _, seed := range seeds {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(seed)))
		h.Write(lenBuf[:])
		h.Write(seed)
	}

	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

// Fund derives a fund's address from its handle and owner identity.
// The handle is NFC-normalized first so visually identical handles that
// differ only in Unicode composition derive the same address.
func Fund(handle, owner string) Address {
	return Derive([]byte(norm.NFC.String(handle)), []byte(owner))
}

// Vault derives a fund's vault address under the given scheme.
func Vault(scheme VaultScheme, fund Address) Address {
	return Derive([]byte(scheme), fund[:])
}

// Join derives the escrow holding address for a join request.
func Join(fund Address, candidate string) Address {
	return Derive([]byte(seedJoin), fund[:], []byte(candidate))
}

// Proposal derives the address of the proposal opened at the given
// sequence. The sequence is encoded as 8 little-endian bytes, matching
// the original master-nonce seed encoding. Bumping the fund's sequence
// after a decision is what opens a fresh, previously-unused slot.
func Proposal(fund Address, sequence uint64) Address {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)
	return Derive([]byte(seedProposal), fund[:], seq[:])
}
