package bot

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/coopco/castbot/internal/cast"
)

// Action is a button action kind carried inside a callback token.
type Action string

const (
	ActionLike     Action = "like"
	ActionUnlike   Action = "unlike"
	ActionRecast   Action = "recast"
	ActionUnrecast Action = "unrecast"
	ActionReply    Action = "reply"
	ActionQuote    Action = "quote"
	ActionThread   Action = "thread"
)

// knownActions is the closed set of decodable action kinds.
var knownActions = map[Action]bool{
	ActionLike:     true,
	ActionUnlike:   true,
	ActionRecast:   true,
	ActionUnrecast: true,
	ActionReply:    true,
	ActionQuote:    true,
	ActionThread:   true,
}

// MaxTokenSize is the hard platform limit on callback data. Telegram caps
// callback_data at 64 bytes.
const MaxTokenSize = 64

// tokenHashSize is how much of the content hash survives encoding. Truncating
// to 20 bytes (40 hex characters) keeps the token under MaxTokenSize; the
// resulting collision risk across casts sharing a 20-byte hash prefix is
// accepted, not a bug.
const tokenHashSize = 20

// maxActionLen is the longest action name ("unrecast"); it bounds the
// worst-case token length for a given target.
const maxActionLen = len(ActionUnrecast)

// TokenFits reports whether every action token for target stays within
// MaxTokenSize. The fid's decimal width is the only variable part; casts by
// fids wide enough to overflow the limit are rendered without action buttons
// rather than with tokens the platform would reject.
func TokenFits(target cast.CastID) bool {
	fidWidth := len(strconv.FormatUint(target.Fid, 10))
	return maxActionLen+1+fidWidth+1+2*tokenHashSize <= MaxTokenSize
}

// DecodeError reports a malformed callback token. Handlers report it to the
// user as an unknown action; it never propagates as a crash.
type DecodeError struct {
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bad callback token %q: %s", e.Token, e.Reason)
}

// EncodeToken packs an action and target into the wire form
// <action>:<fid(decimal)>:<first-40-hex-of-hash>.
func EncodeToken(action Action, target cast.CastID) string {
	h := target.Hash
	if len(h) > tokenHashSize {
		h = h[:tokenHashSize]
	}
	return fmt.Sprintf("%s:%d:%s", action, target.Fid, hex.EncodeToString(h))
}

// DecodeToken reverses EncodeToken. decode(encode(x)) == x for the truncated
// hash form. Anything that is not exactly three colon-delimited fields with a
// known action, decimal fid and hex hash fails with a *DecodeError.
func DecodeToken(token string) (Action, cast.CastID, error) {
	fields := strings.Split(token, ":")
	if len(fields) != 3 {
		return "", cast.CastID{}, &DecodeError{
			Token:  token,
			Reason: fmt.Sprintf("expected 3 fields, got %d", len(fields)),
		}
	}

	action := Action(fields[0])
	if !knownActions[action] {
		return "", cast.CastID{}, &DecodeError{
			Token:  token,
			Reason: fmt.Sprintf("unknown action %q", fields[0]),
		}
	}

	fid, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return "", cast.CastID{}, &DecodeError{Token: token, Reason: "fid is not a decimal integer"}
	}

	hash, err := hex.DecodeString(fields[2])
	if err != nil {
		return "", cast.CastID{}, &DecodeError{Token: token, Reason: "hash is not valid hex"}
	}

	return action, cast.CastID{Fid: fid, Hash: cast.HexBytes(hash)}, nil
}
