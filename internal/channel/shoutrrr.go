package channel

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"nomwatch/pkg/logx"
)

type ShoutrrrConfig struct {
	// Title is attached to every delivery (services that support one).
	Title   string
	Timeout time.Duration
	// MessageLimit caps a single payload's text size (0 = no splitting).
	MessageLimit int
}

// Shoutrrr delivers digests through any service shoutrrr can address
// (ntfy, gotify, matrix, email gateways, ...). The user's address is their
// shoutrrr service URL; senders are built per URL and cached.
type Shoutrrr struct {
	cfg ShoutrrrConfig
	log logx.Logger

	mu      sync.Mutex
	senders map[string]*router.ServiceRouter
}

func NewShoutrrr(cfg ShoutrrrConfig, log logx.Logger) *Shoutrrr {
	return &Shoutrrr{cfg: cfg, log: log, senders: make(map[string]*router.ServiceRouter)}
}

func (s *Shoutrrr) Name() string        { return "shoutrrr" }
func (s *Shoutrrr) MarkupEnabled() bool { return false }

func (s *Shoutrrr) Send(ctx context.Context, address, text string) error {
	sender, err := s.senderFor(address)
	if err != nil {
		return err
	}
	_ = ctx // the router applies its own timeout

	params := stypes.Params{}
	if s.cfg.Title != "" {
		params.SetTitle(s.cfg.Title)
	}

	parts := []string{text}
	if s.cfg.MessageLimit > 0 {
		parts = SplitMessage(text, s.cfg.MessageLimit)
	}
	for i, part := range parts {
		for _, e := range sender.Send(part, &params) {
			if e != nil {
				return fmt.Errorf("shoutrrr send part %d: %w", i+1, e)
			}
		}
	}
	return nil
}

func (s *Shoutrrr) senderFor(url string) (*router.ServiceRouter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sender, ok := s.senders[url]; ok {
		return sender, nil
	}
	sender, err := shoutrrr.CreateSender(url)
	if err != nil {
		return nil, fmt.Errorf("shoutrrr address: %w", err)
	}
	if s.cfg.Timeout > 0 {
		sender.Timeout = s.cfg.Timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	s.senders[url] = sender
	return sender, nil
}

var _ Channel = (*Shoutrrr)(nil)
