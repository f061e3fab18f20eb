// Package gateway wires the reply engine to its transports. It owns the
// message bus, the channels, the cron service, and the per-session entity
// memory; the engine itself stays free of shared mutable state.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wispbot/wisp/internal/bus"
	"github.com/wispbot/wisp/internal/channel"
	"github.com/wispbot/wisp/internal/config"
	"github.com/wispbot/wisp/internal/cron"
	"github.com/wispbot/wisp/internal/engine"
	"github.com/wispbot/wisp/internal/intent"
	"github.com/wispbot/wisp/internal/session"
)

// Options for creating a Gateway
type Options struct {
	Engine     *engine.Engine // injectable for testing
	SignalChan chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	engine     *engine.Engine
	sessions   *session.Store
	channels   *channel.ChannelManager
	cron       *cron.Service
	signalChan chan os.Signal // for testing
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	// Message bus
	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	// Engine: built once from the intents file; a broken file is fatal here
	eng := opts.Engine
	if eng == nil {
		catalog, defaultResp, err := intent.LoadFile(cfg.Bot.IntentsPath)
		if err != nil {
			return nil, fmt.Errorf("load intents: %w", err)
		}
		eng, err = engine.New(catalog, defaultResp)
		if err != nil {
			return nil, fmt.Errorf("build engine: %w", err)
		}
	}
	g.engine = eng

	// Session memory, keyed by channel:chatID, kept for process lifetime
	g.sessions = session.NewStore()

	// Signal channel for testing
	g.signalChan = opts.SignalChan

	// Cron: scheduled messages run through the engine single-shot
	cronStorePath := filepath.Join(config.ConfigDir(), "data", "cron", "jobs.json")
	g.cron = cron.NewService(cronStorePath)
	g.cron.OnJob = func(job cron.CronJob) (string, error) {
		result := g.engine.Respond(job.Payload.Message)
		if job.Payload.Deliver && job.Payload.Channel != "" {
			g.bus.Outbound <- bus.OutboundMessage{
				Channel: job.Payload.Channel,
				ChatID:  job.Payload.To,
				Content: result,
			}
		}
		return result, nil
	}

	// Channels
	chMgr, err := channel.NewChannelManager(cfg.Channels, cfg.Gateway, g.bus)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	return g, nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.cron.Start(ctx); err != nil {
		log.Printf("[gateway] cron start warning: %v", err)
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] running on %s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			reply := g.respond(&msg)

			if reply != "" {
				g.bus.Outbound <- bus.OutboundMessage{
					Channel: msg.Channel,
					ChatID:  msg.ChatID,
					Content: reply,
					ReplyTo: requestID(&msg),
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// respond runs one conversational turn with session memory: predict intent
// and entities, remember what was freshly learned, then render with the
// merged view. Fresh entities win over remembered ones on key collision.
func (g *Gateway) respond(msg *bus.InboundMessage) string {
	intentName, entities := g.engine.PredictIntent(msg.Content)

	key := msg.SessionKey()
	memory := g.sessions.Get(key)
	g.sessions.Remember(key, entities)

	return g.engine.RenderResponse(intentName, session.Merge(memory, entities))
}

// requestID pulls the correlation id a synchronous transport (the web REST
// endpoint) attached to the inbound message, if any.
func requestID(msg *bus.InboundMessage) string {
	if msg.Metadata == nil {
		return ""
	}
	id, _ := msg.Metadata["request_id"].(string)
	return id
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	_ = g.channels.StopAll()
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
