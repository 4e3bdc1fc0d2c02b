package actions

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coopco/castbot/internal/cast"
	"github.com/coopco/castbot/internal/hub"
	"github.com/coopco/castbot/internal/identity"
)

// fakeHub records submitted messages and echoes them back.
type fakeHub struct {
	submitted []*cast.Message
	submitErr error
}

func (f *fakeHub) SubmitMessage(ctx context.Context, msg *cast.Message) (*cast.Message, error) {
	f.submitted = append(f.submitted, msg)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return msg, nil
}

func (f *fakeHub) CastsByFid(ctx context.Context, fid uint64, limit int) ([]cast.Message, error) {
	return nil, nil
}

func (f *fakeHub) CastsByParent(ctx context.Context, parent cast.CastID) ([]cast.Message, error) {
	return nil, nil
}

func (f *fakeHub) ReactionsByTarget(ctx context.Context, target cast.CastID) ([]cast.Message, error) {
	return nil, nil
}

func (f *fakeHub) UserDataByFid(ctx context.Context, fid uint64) ([]hub.UserDataField, error) {
	return nil, nil
}

func (f *fakeHub) Info(ctx context.Context) (*hub.NodeInfo, error) {
	return &hub.NodeInfo{}, nil
}

func newTestPublisher(t *testing.T) (*Publisher, *fakeHub) {
	t.Helper()
	id, err := identity.FromRawSecret(bytes.Repeat([]byte{0xaa}, 32))
	if err != nil {
		t.Fatalf("failed to build identity: %v", err)
	}
	f := &fakeHub{}
	return NewPublisher(id, 42, f), f
}

func TestCastSubmitsOnceWithoutParent(t *testing.T) {
	p, f := newTestPublisher(t)

	msg, err := p.Cast(context.Background(), "hello", nil, nil)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	if len(f.submitted) != 1 {
		t.Fatalf("expected exactly 1 submit, got %d", len(f.submitted))
	}
	body := msg.Data.CastAddBody
	if body == nil || body.Text != "hello" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.ParentCastID != nil {
		t.Error("top-level cast must not carry a parent")
	}
	if msg.Data.Fid != 42 {
		t.Errorf("expected fid 42, got %d", msg.Data.Fid)
	}
	if msg.Data.Type != cast.TypeCastAdd {
		t.Errorf("unexpected type %q", msg.Data.Type)
	}
}

func TestReplyIsCastWithParent(t *testing.T) {
	p, f := newTestPublisher(t)
	parent := cast.CastID{Fid: 7, Hash: cast.HexBytes{0x11, 0x22}}

	msg, err := p.Reply(context.Background(), "nice", parent)
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if len(f.submitted) != 1 {
		t.Fatalf("expected 1 submit, got %d", len(f.submitted))
	}
	// Reply is a plain cast-add; only the parent distinguishes it.
	if msg.Data.Type != cast.TypeCastAdd {
		t.Errorf("reply used type %q instead of cast-add", msg.Data.Type)
	}
	got := msg.Data.CastAddBody.ParentCastID
	if got == nil || got.Fid != 7 || !bytes.Equal(got.Hash, parent.Hash) {
		t.Errorf("unexpected parent: %+v", got)
	}
}

func TestQuoteUsesCastReferenceEmbed(t *testing.T) {
	p, _ := newTestPublisher(t)
	target := cast.CastID{Fid: 7, Hash: cast.HexBytes{0xab}}

	msg, err := p.Quote(context.Background(), "look at this", target)
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	body := msg.Data.CastAddBody
	if body.ParentCastID != nil {
		t.Error("quote must not set a parent")
	}
	if len(body.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(body.Embeds))
	}
	emb := body.Embeds[0]
	if emb.URL != "" {
		t.Error("quote embed must be a cast reference, not a URL")
	}
	if emb.CastID == nil || emb.CastID.Fid != 7 || !bytes.Equal(emb.CastID.Hash, target.Hash) {
		t.Errorf("unexpected embed target: %+v", emb.CastID)
	}
}

func TestReactionsShareShape(t *testing.T) {
	p, f := newTestPublisher(t)
	target := cast.CastID{Fid: 9, Hash: cast.HexBytes{0x01}}
	ctx := context.Background()

	if _, err := p.Like(ctx, target); err != nil {
		t.Fatalf("Like failed: %v", err)
	}
	if _, err := p.Unlike(ctx, target); err != nil {
		t.Fatalf("Unlike failed: %v", err)
	}
	if _, err := p.Recast(ctx, target); err != nil {
		t.Fatalf("Recast failed: %v", err)
	}
	if _, err := p.Unrecast(ctx, target); err != nil {
		t.Fatalf("Unrecast failed: %v", err)
	}

	want := []struct {
		typ  cast.MessageType
		kind cast.ReactionType
	}{
		{cast.TypeReactionAdd, cast.ReactionLike},
		{cast.TypeReactionRemove, cast.ReactionLike},
		{cast.TypeReactionAdd, cast.ReactionRecast},
		{cast.TypeReactionRemove, cast.ReactionRecast},
	}
	if len(f.submitted) != len(want) {
		t.Fatalf("expected %d submits, got %d", len(want), len(f.submitted))
	}
	for i, w := range want {
		m := f.submitted[i]
		if m.Data.Type != w.typ || m.Data.ReactionBody.Type != w.kind {
			t.Errorf("submit %d: got %s/%s, want %s/%s",
				i, m.Data.Type, m.Data.ReactionBody.Type, w.typ, w.kind)
		}
		if m.Data.ReactionBody.TargetCastID.Fid != 9 {
			t.Errorf("submit %d: wrong target fid %d", i, m.Data.ReactionBody.TargetCastID.Fid)
		}
	}
}

func TestRemove(t *testing.T) {
	p, f := newTestPublisher(t)

	msg, err := p.Remove(context.Background(), cast.HexBytes{0xde, 0xad})
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if msg.Data.Type != cast.TypeCastRemove {
		t.Errorf("unexpected type %q", msg.Data.Type)
	}
	if !bytes.Equal(msg.Data.CastRemoveBody.TargetHash, cast.HexBytes{0xde, 0xad}) {
		t.Errorf("unexpected target hash %s", msg.Data.CastRemoveBody.TargetHash)
	}
	if len(f.submitted) != 1 {
		t.Fatalf("expected 1 submit, got %d", len(f.submitted))
	}
}

func TestTimestampStampedAtBuildTime(t *testing.T) {
	p, _ := newTestPublisher(t)

	before := cast.Timestamp(time.Now())
	msg, err := p.Cast(context.Background(), "now", nil, nil)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	after := cast.Timestamp(time.Now())
	if msg.Data.Timestamp < before || msg.Data.Timestamp > after {
		t.Errorf("timestamp %d outside build window [%d, %d]", msg.Data.Timestamp, before, after)
	}
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	p, f := newTestPublisher(t)
	rej := &hub.RejectionError{Op: "submitMessage", StatusCode: 400, Detail: "duplicate reaction"}
	f.submitErr = rej

	_, err := p.Like(context.Background(), cast.CastID{Fid: 1, Hash: cast.HexBytes{0x01}})
	if !errors.Is(err, rej) {
		t.Fatalf("expected the hub error unchanged, got %v", err)
	}
	if len(f.submitted) != 1 {
		t.Errorf("expected exactly 1 attempt (no retry), got %d", len(f.submitted))
	}
}
