// Package bot is the interactive front end: it consumes chat events from the
// bus, runs the per-conversation session state machine for multi-step actions
// (reply, quote), decodes button callback tokens, and drives the action layer.
package bot

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coopco/castbot/internal/actions"
	"github.com/coopco/castbot/internal/bus"
	"github.com/coopco/castbot/internal/cron"
	"github.com/coopco/castbot/internal/hub"
)

const (
	feedLimit  = 5
	queueDepth = 16

	// workerIdleAfter is how long a conversation worker sits with an empty
	// queue before it retires and its entry is reclaimed.
	workerIdleAfter = 5 * time.Minute
)

// Bot wires the session state machine to the action layer and the hub.
type Bot struct {
	bus     *bus.MessageBus
	pub     *actions.Publisher
	hub     hub.Client
	sched   *cron.Service // nil disables /schedule
	pending *PendingStore

	idleAfter time.Duration

	mu     sync.Mutex
	queues map[string]chan bus.InboundEvent
}

// New creates a Bot. sched may be nil when scheduling is not configured.
func New(msgBus *bus.MessageBus, pub *actions.Publisher, client hub.Client, sched *cron.Service) *Bot {
	return &Bot{
		bus:       msgBus,
		pub:       pub,
		hub:       client,
		sched:     sched,
		pending:   NewPendingStore(),
		idleAfter: workerIdleAfter,
		queues:    make(map[string]chan bus.InboundEvent),
	}
}

// Pending exposes the pending-action store (used by tests and diagnostics).
func (b *Bot) Pending() *PendingStore { return b.pending }

// Run consumes inbound events until ctx is cancelled. Events are fanned out
// to one worker per conversation: within a conversation events are handled in
// arrival order by a single goroutine, distinct conversations run
// concurrently.
func (b *Bot) Run(ctx context.Context) error {
	for {
		ev, err := b.bus.ConsumeInbound(ctx)
		if err != nil {
			return err
		}
		b.dispatch(ctx, ev)
	}
}

// dispatch hands the event to its conversation's worker without ever blocking
// the shared loop: a conversation whose queue is full gets a busy response
// instead of stalling delivery to every other conversation.
func (b *Bot) dispatch(ctx context.Context, ev bus.InboundEvent) {
	key := ev.ConversationKey()

	b.mu.Lock()
	q, ok := b.queues[key]
	if !ok {
		q = make(chan bus.InboundEvent, queueDepth)
		b.queues[key] = q
		go b.worker(ctx, key, q)
	}
	select {
	case q <- ev:
		b.mu.Unlock()
		return
	default:
	}
	b.mu.Unlock()

	slog.Warn("bot: conversation queue full, dropping event", "conversation", key)
	b.say(ev, "still working through your earlier requests, try again in a moment")
}

// worker drains one conversation's queue in arrival order and retires after
// sitting idle. Sends happen under b.mu, so checking the queue is empty under
// the same lock before deleting its entry cannot lose an event.
func (b *Bot) worker(ctx context.Context, key string, q chan bus.InboundEvent) {
	for {
		select {
		case ev := <-q:
			b.Handle(ctx, ev)
		case <-time.After(b.idleAfter):
			b.mu.Lock()
			if len(q) > 0 {
				b.mu.Unlock()
				continue
			}
			delete(b.queues, key)
			b.mu.Unlock()
			return
		case <-ctx.Done():
			return
		}
	}
}

// Handle processes a single event to completion. Every failure path produces
// one response to the originating conversation; nothing here takes the whole
// process down.
func (b *Bot) Handle(ctx context.Context, ev bus.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bot: panic while handling event", "conversation", ev.ConversationKey(), "panic", r)
			b.say(ev, "something went wrong handling that, sorry")
		}
	}()

	switch ev.Kind {
	case bus.KindCommand:
		b.handleCommand(ctx, ev)
	case bus.KindCallback:
		b.handleCallback(ctx, ev)
	case bus.KindText:
		b.handleText(ctx, ev)
	default:
		slog.Warn("bot: dropping event of unknown kind", "kind", ev.Kind)
	}
}

func (b *Bot) handleCommand(ctx context.Context, ev bus.InboundEvent) {
	switch ev.Command {
	case "start", "help":
		b.say(ev, helpText)

	case "cast":
		text := strings.TrimSpace(ev.Args)
		if text == "" {
			b.say(ev, "usage: /cast <text>")
			return
		}
		msg, err := b.pub.Cast(ctx, text, nil, nil)
		if err != nil {
			b.reportErr(ev, "cast", err)
			return
		}
		b.say(ev, "cast published: "+msg.Hash.String())

	case "remove":
		arg := strings.TrimPrefix(strings.TrimSpace(ev.Args), "0x")
		hash, err := hex.DecodeString(arg)
		if err != nil || len(hash) == 0 {
			b.say(ev, "usage: /remove <cast hash hex>")
			return
		}
		if _, err := b.pub.Remove(ctx, hash); err != nil {
			b.reportErr(ev, "remove", err)
			return
		}
		b.say(ev, "cast removed")

	case "feed":
		fid, err := b.fidArg(ev.Args)
		if err != nil {
			b.say(ev, "usage: /feed [fid]")
			return
		}
		msgs, err := b.hub.CastsByFid(ctx, fid, feedLimit)
		if err != nil {
			b.reportErr(ev, "feed", err)
			return
		}
		if len(msgs) == 0 {
			b.say(ev, fmt.Sprintf("no casts found for fid %d", fid))
			return
		}
		for i := range msgs {
			m := &msgs[i]
			b.sayButtons(ev, formatCast(m), castKeyboard(m.ID()))
		}

	case "profile":
		fid, err := b.fidArg(ev.Args)
		if err != nil {
			b.say(ev, "usage: /profile [fid]")
			return
		}
		fields, err := b.hub.UserDataByFid(ctx, fid)
		if err != nil {
			b.reportErr(ev, "profile", err)
			return
		}
		b.say(ev, formatProfile(fid, fields))

	case "status":
		info, err := b.hub.Info(ctx)
		if err != nil {
			b.reportErr(ev, "status", err)
			return
		}
		b.say(ev, formatInfo(info))

	case "cancel":
		if b.pending.Clear(ev.ConversationKey()) {
			b.say(ev, "pending action discarded")
		} else {
			b.say(ev, "nothing to cancel")
		}

	case "schedule":
		b.handleSchedule(ev)

	case "jobs":
		b.handleJobs(ev)

	case "unschedule":
		b.handleUnschedule(ev)

	default:
		b.say(ev, fmt.Sprintf("unknown command /%s — try /help", ev.Command))
	}
}

// handleCallback drives state-machine transitions from button presses. A
// malformed or unrecognized token is reported as an unknown action, never
// propagated as a failure.
func (b *Bot) handleCallback(ctx context.Context, ev bus.InboundEvent) {
	action, target, err := DecodeToken(ev.Token)
	if err != nil {
		slog.Warn("bot: undecodable callback token", "conversation", ev.ConversationKey(), "error", err)
		b.say(ev, "unknown action")
		return
	}

	switch action {
	case ActionLike:
		b.react(ctx, ev, "liked", func() error {
			_, err := b.pub.Like(ctx, target)
			return err
		})
	case ActionUnlike:
		b.react(ctx, ev, "like removed", func() error {
			_, err := b.pub.Unlike(ctx, target)
			return err
		})
	case ActionRecast:
		b.react(ctx, ev, "recasted", func() error {
			_, err := b.pub.Recast(ctx, target)
			return err
		})
	case ActionUnrecast:
		b.react(ctx, ev, "recast removed", func() error {
			_, err := b.pub.Unrecast(ctx, target)
			return err
		})

	case ActionReply:
		// Last writer wins: a fresh trigger silently replaces any
		// pending action for this conversation.
		b.pending.Begin(ev.ConversationKey(), Pending{
			Kind:            PendingReply,
			Target:          target,
			OriginMessageID: ev.MessageID,
		})
		b.say(ev, fmt.Sprintf("replying to %s — send the text, or /cancel", target))

	case ActionQuote:
		b.pending.Begin(ev.ConversationKey(), Pending{
			Kind:            PendingQuote,
			Target:          target,
			OriginMessageID: ev.MessageID,
		})
		b.say(ev, fmt.Sprintf("quoting %s — send the text, or /cancel", target))

	case ActionThread:
		replies, err := b.hub.CastsByParent(ctx, target)
		if err != nil {
			b.reportErr(ev, "thread", err)
			return
		}
		if len(replies) == 0 {
			b.say(ev, "no replies yet")
			return
		}
		for i := range replies {
			m := &replies[i]
			b.sayButtons(ev, formatCast(m), castKeyboard(m.ID()))
		}

	default:
		// DecodeToken only returns known actions, but keep the
		// dispatcher total anyway.
		b.say(ev, "unknown action")
	}
}

// handleText resolves free text against the conversation's pending action.
// The slot is consumed before the action runs and stays empty whether the
// action succeeds or fails; text with no pending action is not for us.
func (b *Bot) handleText(ctx context.Context, ev bus.InboundEvent) {
	p, ok := b.pending.Take(ev.ConversationKey())
	if !ok {
		return
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		b.say(ev, "empty text, pending action discarded")
		return
	}

	switch p.Kind {
	case PendingReply:
		msg, err := b.pub.Reply(ctx, text, p.Target)
		if err != nil {
			b.reportErr(ev, "reply", err)
			return
		}
		b.say(ev, "reply published: "+msg.Hash.String())
	case PendingQuote:
		msg, err := b.pub.Quote(ctx, text, p.Target)
		if err != nil {
			b.reportErr(ev, "quote", err)
			return
		}
		b.say(ev, "quote published: "+msg.Hash.String())
	}
}

func (b *Bot) handleSchedule(ev bus.InboundEvent) {
	if b.sched == nil {
		b.say(ev, "scheduling is not enabled")
		return
	}
	spec, text, ok := strings.Cut(ev.Args, "|")
	if !ok {
		b.say(ev, "usage: /schedule <at HH:MM|every DUR|cron EXPR> | <text>")
		return
	}
	typ, expr, ok := strings.Cut(strings.TrimSpace(spec), " ")
	if !ok {
		b.say(ev, "usage: /schedule <at HH:MM|every DUR|cron EXPR> | <text>")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		b.say(ev, "scheduled cast text must not be empty")
		return
	}

	id, err := b.sched.AddJob(cron.Schedule{
		Type:       cron.ScheduleType(typ),
		Expression: strings.TrimSpace(expr),
	}, text, ev.Channel, ev.ChatID)
	if err != nil {
		b.say(ev, "could not schedule: "+err.Error())
		return
	}
	b.say(ev, "scheduled as "+id)
}

func (b *Bot) handleJobs(ev bus.InboundEvent) {
	if b.sched == nil {
		b.say(ev, "scheduling is not enabled")
		return
	}
	jobs := b.sched.ListJobs()
	if len(jobs) == 0 {
		b.say(ev, "no scheduled casts")
		return
	}
	var sb strings.Builder
	for _, j := range jobs {
		fmt.Fprintf(&sb, "%s: %s %s — %q\n", j.ID, j.Schedule.Type, j.Schedule.Expression, j.Text)
	}
	b.say(ev, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleUnschedule(ev bus.InboundEvent) {
	if b.sched == nil {
		b.say(ev, "scheduling is not enabled")
		return
	}
	id := strings.TrimSpace(ev.Args)
	if id == "" {
		b.say(ev, "usage: /unschedule <id>")
		return
	}
	if err := b.sched.RemoveJob(id); err != nil {
		b.say(ev, err.Error())
		return
	}
	b.say(ev, "removed "+id)
}

func (b *Bot) react(ctx context.Context, ev bus.InboundEvent, done string, fn func() error) {
	if err := fn(); err != nil {
		b.reportErr(ev, "reaction", err)
		return
	}
	b.say(ev, done)
}

// fidArg parses an optional fid argument, defaulting to the bot's own fid.
func (b *Bot) fidArg(args string) (uint64, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return b.pub.Fid(), nil
	}
	return strconv.ParseUint(args, 10, 64)
}

// reportErr converts an action/hub error into a single user-facing message.
// Transport errors invite a manual retry; node rejections are surfaced
// verbatim and must not be retried.
func (b *Bot) reportErr(ev bus.InboundEvent, op string, err error) {
	slog.Error("bot: operation failed", "op", op, "conversation", ev.ConversationKey(), "error", err)
	if hub.IsTransport(err) {
		b.say(ev, fmt.Sprintf("%s failed: hub unreachable, try again later", op))
		return
	}
	b.say(ev, fmt.Sprintf("%s failed: %v", op, err))
}

func (b *Bot) say(ev bus.InboundEvent, text string) {
	b.sayButtons(ev, text, nil)
}

func (b *Bot) sayButtons(ev bus.InboundEvent, text string, buttons [][]bus.Button) {
	b.bus.PublishOutbound(bus.OutboundMessage{
		Channel: ev.Channel,
		ChatID:  ev.ChatID,
		Text:    text,
		Buttons: buttons,
	})
}
