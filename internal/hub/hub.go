// Package hub abstracts the remote protocol node. The Client interface is the
// only surface the rest of the bot depends on; HTTP wiring lives behind it.
package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/coopco/castbot/internal/cast"
)

// UserDataField is one typed profile field of an account.
type UserDataField struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ShardInfo describes a single hub shard.
type ShardInfo struct {
	ShardID     uint32 `json:"shardId"`
	NumMessages uint64 `json:"numMessages"`
	BlockNumber uint64 `json:"blockNumber"`
}

// NodeInfo is the hub status snapshot.
type NodeInfo struct {
	Version     string      `json:"version"`
	NumShards   uint32      `json:"numShards"`
	NumMessages uint64      `json:"numMessages"`
	Shards      []ShardInfo `json:"shardInfos"`
}

// Client is the capability set a remote node must expose.
//
// SubmitMessage is not idempotent at this layer; avoiding duplicate
// submission is the caller's job. All operations can fail with either a
// *TransportError (the request never got a verdict; retrying may help) or a
// *RejectionError (the node saw the request and said no; retrying will not).
type Client interface {
	SubmitMessage(ctx context.Context, msg *cast.Message) (*cast.Message, error)
	CastsByFid(ctx context.Context, fid uint64, limit int) ([]cast.Message, error)
	CastsByParent(ctx context.Context, parent cast.CastID) ([]cast.Message, error)
	ReactionsByTarget(ctx context.Context, target cast.CastID) ([]cast.Message, error)
	UserDataByFid(ctx context.Context, fid uint64) ([]UserDataField, error)
	Info(ctx context.Context) (*NodeInfo, error)
}

// TransportError wraps a network-level failure reaching the node.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("hub transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError is a node-side validation failure: bad signature, unknown
// fid, duplicate reaction, and so on. Surfaced verbatim, never retried.
type RejectionError struct {
	Op         string
	StatusCode int
	Code       string
	Detail     string
}

func (e *RejectionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("hub rejected %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("hub rejected %s: status %d", e.Op, e.StatusCode)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejection reports whether err is (or wraps) a RejectionError.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
