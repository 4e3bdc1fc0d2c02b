// Package actions builds, signs and submits outbound protocol messages. Each
// operation is single-shot: errors from the hub propagate unchanged and
// nothing here retries, because submissions are not idempotent.
package actions

import (
	"context"

	"github.com/coopco/castbot/internal/cast"
	"github.com/coopco/castbot/internal/hub"
	"github.com/coopco/castbot/internal/identity"
)

// Publisher writes on behalf of one signing identity and FID.
type Publisher struct {
	id  *identity.Identity
	fid uint64
	hub hub.Client
}

// NewPublisher returns a Publisher for the given identity, account FID and
// hub client.
func NewPublisher(id *identity.Identity, fid uint64, client hub.Client) *Publisher {
	return &Publisher{id: id, fid: fid, hub: client}
}

// Fid returns the account FID this publisher writes as.
func (p *Publisher) Fid() uint64 { return p.fid }

// Cast publishes a top-level cast.
func (p *Publisher) Cast(ctx context.Context, text string, embeds []cast.Embed, mentions []uint64) (*cast.Message, error) {
	return p.castAdd(ctx, text, embeds, mentions, nil)
}

// Reply publishes a cast with its parent set to the given reference. There is
// no separate wire shape for replies.
func (p *Publisher) Reply(ctx context.Context, text string, parent cast.CastID) (*cast.Message, error) {
	return p.castAdd(ctx, text, nil, nil, &parent)
}

// Quote publishes a cast carrying a cast-reference embed pointing at target.
// This is distinct from a URL embed.
func (p *Publisher) Quote(ctx context.Context, text string, target cast.CastID) (*cast.Message, error) {
	return p.castAdd(ctx, text, []cast.Embed{{CastID: &target}}, nil, nil)
}

// Remove tombstones one of this account's own casts by hash.
func (p *Publisher) Remove(ctx context.Context, targetHash cast.HexBytes) (*cast.Message, error) {
	return p.submit(ctx, cast.MessageData{
		Type:           cast.TypeCastRemove,
		CastRemoveBody: &cast.CastRemoveBody{TargetHash: targetHash},
	})
}

// React attaches a reaction of the given kind to target.
func (p *Publisher) React(ctx context.Context, kind cast.ReactionType, target cast.CastID) (*cast.Message, error) {
	return p.reaction(ctx, cast.TypeReactionAdd, kind, target)
}

// Unreact removes a previously attached reaction. Structurally identical to
// React apart from the message type.
func (p *Publisher) Unreact(ctx context.Context, kind cast.ReactionType, target cast.CastID) (*cast.Message, error) {
	return p.reaction(ctx, cast.TypeReactionRemove, kind, target)
}

func (p *Publisher) Like(ctx context.Context, target cast.CastID) (*cast.Message, error) {
	return p.React(ctx, cast.ReactionLike, target)
}

func (p *Publisher) Unlike(ctx context.Context, target cast.CastID) (*cast.Message, error) {
	return p.Unreact(ctx, cast.ReactionLike, target)
}

func (p *Publisher) Recast(ctx context.Context, target cast.CastID) (*cast.Message, error) {
	return p.React(ctx, cast.ReactionRecast, target)
}

func (p *Publisher) Unrecast(ctx context.Context, target cast.CastID) (*cast.Message, error) {
	return p.Unreact(ctx, cast.ReactionRecast, target)
}

func (p *Publisher) castAdd(ctx context.Context, text string, embeds []cast.Embed, mentions []uint64, parent *cast.CastID) (*cast.Message, error) {
	return p.submit(ctx, cast.MessageData{
		Type: cast.TypeCastAdd,
		CastAddBody: &cast.CastAddBody{
			Text:         text,
			Embeds:       embeds,
			Mentions:     mentions,
			ParentCastID: parent,
		},
	})
}

func (p *Publisher) reaction(ctx context.Context, typ cast.MessageType, kind cast.ReactionType, target cast.CastID) (*cast.Message, error) {
	return p.submit(ctx, cast.MessageData{
		Type:         typ,
		ReactionBody: &cast.ReactionBody{Type: kind, TargetCastID: target},
	})
}

// submit stamps fid, network and the timestamp, signs and submits. The
// timestamp is taken here, at build time, so it cannot drift from an earlier
// step.
func (p *Publisher) submit(ctx context.Context, data cast.MessageData) (*cast.Message, error) {
	data.Fid = p.fid
	data.Network = cast.Network
	data.Timestamp = cast.Now()

	msg, err := cast.Sign(p.id, data)
	if err != nil {
		return nil, err
	}
	return p.hub.SubmitMessage(ctx, msg)
}
