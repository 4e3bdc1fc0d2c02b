// Package heartbeat periodically polls the hub's status endpoint, logs shard
// and message counts, and alerts a configured chat when the hub becomes
// unreachable or recovers.
package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coopco/castbot/internal/bus"
	"github.com/coopco/castbot/internal/hub"
)

type Service struct {
	hub      hub.Client
	bus      *bus.MessageBus
	interval time.Duration

	// alert destination; no alerts are sent when either is empty
	notifyChannel string
	notifyChatID  string

	mu          sync.Mutex
	stopCh      chan struct{}
	running     bool
	unreachable bool
}

type Config struct {
	Hub           hub.Client
	Bus           *bus.MessageBus
	Interval      time.Duration
	NotifyChannel string
	NotifyChatID  string
}

func NewService(cfg Config) *Service {
	interval := cfg.Interval
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &Service{
		hub:           cfg.Hub,
		bus:           cfg.Bus,
		interval:      interval,
		notifyChannel: cfg.NotifyChannel,
		notifyChatID:  cfg.NotifyChatID,
		stopCh:        make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// TriggerNow runs a single poll immediately, outside the ticker.
func (s *Service) TriggerNow(ctx context.Context) {
	s.tick(ctx)
}

func (s *Service) tick(ctx context.Context) {
	info, err := s.hub.Info(ctx)
	if err != nil {
		slog.Warn("heartbeat: hub status check failed", "error", err)
		s.transition(true, fmt.Sprintf("hub unreachable: %v", err))
		return
	}

	slog.Info("heartbeat: hub status",
		"version", info.Version,
		"shards", info.NumShards,
		"messages", info.NumMessages)
	s.transition(false, fmt.Sprintf("hub reachable again (version %s, %d messages)",
		info.Version, info.NumMessages))
}

// transition sends one alert per reachability flip, not one per tick.
func (s *Service) transition(unreachable bool, text string) {
	s.mu.Lock()
	changed := s.unreachable != unreachable
	s.unreachable = unreachable
	s.mu.Unlock()

	if !changed || s.bus == nil || s.notifyChannel == "" || s.notifyChatID == "" {
		return
	}
	s.bus.PublishOutbound(bus.OutboundMessage{
		Channel: s.notifyChannel,
		ChatID:  s.notifyChatID,
		Text:    text,
	})
}
