package types

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// MultisigScript describes who may act as the farm's privileged caller, in the shape of a
// Cardano native script. Before and After are expressed in blocks.
type MultisigScript struct {
	Signature *Signature `json:"signature,omitempty"`
	AllOf     *AllOf     `json:"allOf,omitempty"`
	AnyOf     *AnyOf     `json:"anyOf,omitempty"`
	AtLeast   *AtLeast   `json:"atLeast,omitempty"`
	Before    *Before    `json:"before,omitempty"`
	After     *After     `json:"after,omitempty"`
}

func (n MultisigScript) Hash() (string, error) {
	bytes, err := cbor.Marshal(&n)
	if err != nil {
		return "", err
	}
	b2, err := blake2b.New(224/8, nil)
	if err != nil {
		return "", err
	}
	_, err = b2.Write(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b2.Sum(nil)), nil
}

// IsSatisfied reports whether the script is satisfied by the given signing key hashes at the given block
func (n MultisigScript) IsSatisfied(keyHashes [][]byte, block uint64) bool {
	switch {
	case n.Signature != nil:
		for _, kh := range keyHashes {
			if bytes.Equal(kh, n.Signature.KeyHash) {
				return true
			}
		}
		return false
	case n.AllOf != nil:
		for _, script := range n.AllOf.Scripts {
			if !script.IsSatisfied(keyHashes, block) {
				return false
			}
		}
		return true
	case n.AnyOf != nil:
		for _, script := range n.AnyOf.Scripts {
			if script.IsSatisfied(keyHashes, block) {
				return true
			}
		}
		return false
	case n.AtLeast != nil:
		satisfied := 0
		for _, script := range n.AtLeast.Scripts {
			if script.IsSatisfied(keyHashes, block) {
				satisfied++
			}
		}
		return satisfied >= n.AtLeast.Required
	case n.Before != nil:
		return block < n.Before.Slot
	case n.After != nil:
		return block >= n.After.Slot
	default:
		return false
	}
}

const tagBase = 120

func (n *MultisigScript) UnmarshalCBOR(b []byte) error {
	var rawTag cbor.RawTag
	if err := cbor.Unmarshal(b, &rawTag); err != nil {
		return err
	}
	switch rawTag.Number - tagBase {
	case 1:
		return cbor.Unmarshal(rawTag.Content, &n.Signature)
	case 2:
		return cbor.Unmarshal(rawTag.Content, &n.AllOf)
	case 3:
		return cbor.Unmarshal(rawTag.Content, &n.AnyOf)
	case 4:
		return cbor.Unmarshal(rawTag.Content, &n.AtLeast)
	case 5:
		return cbor.Unmarshal(rawTag.Content, &n.Before)
	case 6:
		return cbor.Unmarshal(rawTag.Content, &n.After)
	default:
		return fmt.Errorf("unrecognized tag %v", rawTag.Number-tagBase)
	}
}

func (n *MultisigScript) MarshalCBOR() ([]byte, error) {
	switch {
	case n.Signature != nil:
		return cbor.Marshal(&n.Signature)
	case n.AllOf != nil:
		return cbor.Marshal(&n.AllOf)
	case n.AnyOf != nil:
		return cbor.Marshal(&n.AnyOf)
	case n.AtLeast != nil:
		return cbor.Marshal(&n.AtLeast)
	case n.Before != nil:
		return cbor.Marshal(&n.Before)
	case n.After != nil:
		return cbor.Marshal(&n.After)
	default:
		return nil, fmt.Errorf("invalid native script")
	}
}

// indefinite wraps already-encoded items in an indefinite length array, which is how the
// plutus data constructors are serialized on chain
func indefinite(items ...[]byte) []byte {
	out := []byte{0x9f}
	for _, item := range items {
		out = append(out, item...)
	}
	return append(out, 0xff)
}

func constructor(index uint64, content []byte) ([]byte, error) {
	return cbor.Marshal(cbor.RawTag{Number: index + tagBase, Content: content})
}

func encodeScripts(scripts []MultisigScript) ([]byte, error) {
	var encoded [][]byte
	for _, script := range scripts {
		s, err := cbor.Marshal(&script)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, s)
	}
	return indefinite(encoded...), nil
}

type Signature struct {
	_       struct{} `cbor:",toarray"`
	KeyHash []byte
}

func (n *Signature) MarshalCBOR() ([]byte, error) {
	key, err := cbor.Marshal(&n.KeyHash)
	if err != nil {
		return nil, err
	}
	return constructor(1, indefinite(key))
}

type AllOf struct {
	_       struct{} `cbor:",toarray"`
	Scripts []MultisigScript
}

func (n *AllOf) MarshalCBOR() ([]byte, error) {
	scripts, err := encodeScripts(n.Scripts)
	if err != nil {
		return nil, err
	}
	return constructor(2, indefinite(scripts))
}

type AnyOf struct {
	_       struct{} `cbor:",toarray"`
	Scripts []MultisigScript
}

func (n *AnyOf) MarshalCBOR() ([]byte, error) {
	scripts, err := encodeScripts(n.Scripts)
	if err != nil {
		return nil, err
	}
	return constructor(3, indefinite(scripts))
}

type AtLeast struct {
	_        struct{} `cbor:",toarray"`
	Required int
	Scripts  []MultisigScript
}

func (n *AtLeast) MarshalCBOR() ([]byte, error) {
	req, err := cbor.Marshal(&n.Required)
	if err != nil {
		return nil, err
	}
	scripts, err := encodeScripts(n.Scripts)
	if err != nil {
		return nil, err
	}
	return constructor(4, indefinite(req, scripts))
}

type Before struct {
	_    struct{} `cbor:",toarray"`
	Slot uint64
}

func (n *Before) MarshalCBOR() ([]byte, error) {
	slot, err := cbor.Marshal(&n.Slot)
	if err != nil {
		return nil, err
	}
	return constructor(5, indefinite(slot))
}

type After struct {
	_    struct{} `cbor:",toarray"`
	Slot uint64
}

func (n *After) MarshalCBOR() ([]byte, error) {
	slot, err := cbor.Marshal(&n.Slot)
	if err != nil {
		return nil, err
	}
	return constructor(6, indefinite(slot))
}
