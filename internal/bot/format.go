package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/coopco/castbot/internal/bus"
	"github.com/coopco/castbot/internal/cast"
	"github.com/coopco/castbot/internal/hub"
)

// castKeyboard builds the inline keyboard shown under a displayed cast. Every
// button's data field is a callback token for the cast. When the cast's fid
// is too wide for a token to fit the platform limit, the cast is shown plain
// with no buttons.
func castKeyboard(id cast.CastID) [][]bus.Button {
	if !TokenFits(id) {
		return nil
	}
	return [][]bus.Button{
		{
			{Label: "❤ like", Token: EncodeToken(ActionLike, id)},
			{Label: "🔁 recast", Token: EncodeToken(ActionRecast, id)},
		},
		{
			{Label: "💬 reply", Token: EncodeToken(ActionReply, id)},
			{Label: "📝 quote", Token: EncodeToken(ActionQuote, id)},
		},
		{
			{Label: "🧵 thread", Token: EncodeToken(ActionThread, id)},
		},
	}
}

func formatCast(m *cast.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fid %d · %s\n", m.Data.Fid, formatTimestamp(m.Data.Timestamp))
	if body := m.Data.CastAddBody; body != nil {
		b.WriteString(body.Text)
		if body.ParentCastID != nil {
			fmt.Fprintf(&b, "\n↳ reply to %s", body.ParentCastID)
		}
		for _, emb := range body.Embeds {
			if emb.CastID != nil {
				fmt.Fprintf(&b, "\n↳ quotes %s", emb.CastID)
			} else if emb.URL != "" {
				fmt.Fprintf(&b, "\n🔗 %s", emb.URL)
			}
		}
	}
	return b.String()
}

func formatTimestamp(ts uint32) string {
	return time.Unix(int64(ts)+cast.Epoch, 0).UTC().Format("2006-01-02 15:04")
}

func formatProfile(fid uint64, fields []hub.UserDataField) string {
	if len(fields) == 0 {
		return fmt.Sprintf("no profile data for fid %d", fid)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "profile of fid %d:\n", fid)
	for _, f := range fields {
		fmt.Fprintf(&b, "  %s: %s\n", f.Type, f.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatInfo(info *hub.NodeInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "hub %s — %d shards, %d messages", info.Version, info.NumShards, info.NumMessages)
	for _, s := range info.Shards {
		fmt.Fprintf(&b, "\n  shard %d: %d messages, block %d", s.ShardID, s.NumMessages, s.BlockNumber)
	}
	return b.String()
}

const helpText = `commands:
/cast <text> — publish a cast
/remove <hash> — remove one of your casts
/feed [fid] — latest casts by fid (defaults to your own)
/profile [fid] — profile fields
/status — hub status
/cancel — discard a pending reply or quote
/schedule <at HH:MM|every DUR|cron EXPR> | <text> — recurring cast
/jobs — list scheduled casts
/unschedule <id> — remove a scheduled cast
/help — this message`
