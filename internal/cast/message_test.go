package cast

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coopco/castbot/internal/identity"
)

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.FromRawSecret(bytes.Repeat([]byte{0xaa}, 32))
	if err != nil {
		t.Fatalf("failed to build test identity: %v", err)
	}
	return id
}

func TestTimestampEpochOffset(t *testing.T) {
	epoch := time.Unix(Epoch, 0).UTC()
	if got := Timestamp(epoch); got != 0 {
		t.Errorf("expected 0 at the epoch, got %d", got)
	}
	if got := Timestamp(epoch.Add(90 * time.Second)); got != 90 {
		t.Errorf("expected 90, got %d", got)
	}
	// Pre-epoch clocks clamp instead of wrapping around.
	if got := Timestamp(epoch.Add(-time.Hour)); got != 0 {
		t.Errorf("expected clamp to 0 before the epoch, got %d", got)
	}
}

func TestHashDataStableAndTruncated(t *testing.T) {
	data := &MessageData{
		Type:        TypeCastAdd,
		Fid:         42,
		Timestamp:   100,
		Network:     Network,
		CastAddBody: &CastAddBody{Text: "hello"},
	}
	h1, err := HashData(data)
	if err != nil {
		t.Fatalf("HashData failed: %v", err)
	}
	if len(h1) != HashSize {
		t.Fatalf("expected %d-byte hash, got %d", HashSize, len(h1))
	}
	h2, err := HashData(data)
	if err != nil {
		t.Fatalf("HashData failed: %v", err)
	}
	if !bytes.Equal(h1, h2) {
		t.Error("hash is not stable across calls")
	}

	data.CastAddBody.Text = "hello!"
	h3, err := HashData(data)
	if err != nil {
		t.Fatalf("HashData failed: %v", err)
	}
	if bytes.Equal(h1, h3) {
		t.Error("different data produced the same hash")
	}
}

func TestSignProducesVerifiableMessage(t *testing.T) {
	id := testIdentity(t)
	msg, err := Sign(id, MessageData{
		Type:        TypeCastAdd,
		Fid:         42,
		Timestamp:   Now(),
		Network:     Network,
		CastAddBody: &CastAddBody{Text: "signed"},
	})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if msg.HashScheme != "blake3" || msg.SignatureScheme != "ed25519" {
		t.Errorf("unexpected schemes: %s/%s", msg.HashScheme, msg.SignatureScheme)
	}
	if len(msg.Signature) != 64 {
		t.Fatalf("expected 64-byte signature, got %d", len(msg.Signature))
	}
	if !id.Verify(msg.Hash, msg.Signature) {
		t.Error("signature does not verify over the hash")
	}
	if !bytes.Equal(msg.Signer, id.PublicKey()) {
		t.Error("signer field does not match the identity's public key")
	}
}

func TestHexBytesRoundTrip(t *testing.T) {
	in := HexBytes{0x11, 0x22, 0xab}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"0x1122ab"` {
		t.Errorf("unexpected encoding: %s", raw)
	}
	var out HexBytes
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("round trip changed value: %x vs %x", in, out)
	}

	// Unprefixed hex is accepted on the way in.
	if err := json.Unmarshal([]byte(`"1122ab"`), &out); err != nil {
		t.Fatalf("unmarshal of unprefixed hex failed: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Error("unprefixed hex decoded incorrectly")
	}
}

func TestParentCastIDOmittedWhenAbsent(t *testing.T) {
	raw, err := json.Marshal(MessageData{
		Type:        TypeCastAdd,
		Fid:         1,
		Network:     Network,
		CastAddBody: &CastAddBody{Text: "top level"},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(raw), "parentCastId") {
		t.Errorf("top-level cast must not carry parentCastId: %s", raw)
	}
}
