// Package cast defines the protocol message model: typed message bodies, the
// protocol-native timestamp epoch, BLAKE3-160 content hashing, and Ed25519
// message signing.
package cast

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lukechampine.com/blake3"

	"github.com/coopco/castbot/internal/identity"
)

// Epoch is the protocol epoch: 2021-01-01T00:00:00Z. Message timestamps are
// seconds since this instant, not since the Unix epoch.
const Epoch int64 = 1609459200

// HashSize is the length of a message content hash: BLAKE3 output truncated
// to 160 bits.
const HashSize = 20

// Network identifies the protocol network a message is bound for.
const Network = "mainnet"

// MessageType enumerates the message kinds this client produces.
type MessageType string

const (
	TypeCastAdd        MessageType = "cast-add"
	TypeCastRemove     MessageType = "cast-remove"
	TypeReactionAdd    MessageType = "reaction-add"
	TypeReactionRemove MessageType = "reaction-remove"
)

// ReactionType is the closed set of reaction kinds.
type ReactionType string

const (
	ReactionLike   ReactionType = "like"
	ReactionRecast ReactionType = "recast"
)

// HexBytes is a byte sequence carried as a 0x-prefixed lowercase hex string
// on the wire.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex value %q: %w", s, err)
	}
	*h = b
	return nil
}

func (h HexBytes) String() string {
	return "0x" + hex.EncodeToString(h)
}

// CastID identifies a cast by its author FID and content hash. Equality is
// by both fields.
type CastID struct {
	Fid  uint64   `json:"fid"`
	Hash HexBytes `json:"hash"`
}

func (c CastID) String() string {
	return fmt.Sprintf("%d/%s", c.Fid, c.Hash)
}

// Embed is either a URL or a reference to another cast. Exactly one field is
// set; a cast-reference embed is how quotes are expressed on the wire.
type Embed struct {
	URL    string  `json:"url,omitempty"`
	CastID *CastID `json:"castId,omitempty"`
}

// CastAddBody is the payload of a new cast. ParentCastID is set for replies
// and absent for top-level casts.
type CastAddBody struct {
	Text         string   `json:"text"`
	Embeds       []Embed  `json:"embeds,omitempty"`
	Mentions     []uint64 `json:"mentions,omitempty"`
	ParentCastID *CastID  `json:"parentCastId,omitempty"`
}

// CastRemoveBody tombstones a previously published cast by its hash.
type CastRemoveBody struct {
	TargetHash HexBytes `json:"targetHash"`
}

// ReactionBody attaches or detaches a reaction to a target cast. Add and
// remove share this shape; only the message type differs.
type ReactionBody struct {
	Type         ReactionType `json:"type"`
	TargetCastID CastID       `json:"targetCastId"`
}

// MessageData is the signed portion of a message. Exactly one body field is
// populated, matching Type.
type MessageData struct {
	Type           MessageType     `json:"type"`
	Fid            uint64          `json:"fid"`
	Timestamp      uint32          `json:"timestamp"`
	Network        string          `json:"network"`
	CastAddBody    *CastAddBody    `json:"castAddBody,omitempty"`
	CastRemoveBody *CastRemoveBody `json:"castRemoveBody,omitempty"`
	ReactionBody   *ReactionBody   `json:"reactionBody,omitempty"`
}

// Message is a complete signed protocol message: the data, its content hash,
// the signature over the hash, and the signer's public key.
type Message struct {
	Data            MessageData `json:"data"`
	Hash            HexBytes    `json:"hash"`
	HashScheme      string      `json:"hashScheme"`
	Signature       HexBytes    `json:"signature"`
	SignatureScheme string      `json:"signatureScheme"`
	Signer          HexBytes    `json:"signer"`
}

// ID returns the CastID of this message.
func (m *Message) ID() CastID {
	return CastID{Fid: m.Data.Fid, Hash: m.Hash}
}

// Now returns the current protocol timestamp. Computed at message build time
// so a message signed immediately after construction carries no skew.
func Now() uint32 {
	return Timestamp(time.Now())
}

// Timestamp converts a wall-clock time to seconds since the protocol epoch.
func Timestamp(t time.Time) uint32 {
	s := t.Unix() - Epoch
	if s < 0 {
		return 0
	}
	return uint32(s)
}

// HashData computes the content hash: BLAKE3 over the canonical JSON encoding
// of data, truncated to HashSize bytes.
func HashData(data *MessageData) (HexBytes, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message data: %w", err)
	}
	sum := blake3.Sum256(raw)
	return HexBytes(sum[:HashSize]), nil
}

// Sign hashes data and wraps it into a complete signed Message using id.
func Sign(id *identity.Identity, data MessageData) (*Message, error) {
	hash, err := HashData(&data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Data:            data,
		Hash:            hash,
		HashScheme:      "blake3",
		Signature:       HexBytes(id.Sign(hash)),
		SignatureScheme: "ed25519",
		Signer:          HexBytes(id.PublicKey()),
	}, nil
}
