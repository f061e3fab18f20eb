package channel

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/wispbot/wisp/internal/bus"
	"github.com/wispbot/wisp/internal/config"
)

//go:embed static
var staticFiles embed.FS

const (
	webChannelName = "web"
	sessionCookie  = "wisp_sid"
	replyTimeout   = 10 * time.Second
)

type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

// WebChannel serves the embedded chat page, a websocket endpoint for it, and
// a cookie-sessioned POST /api/chat for programmatic clients. REST replies
// are correlated through the bus by a per-request id that the gateway echoes
// back in OutboundMessage.ReplyTo.
type WebChannel struct {
	BaseChannel
	host         string
	port         int
	allowOrigins []string
	server       *http.Server
	clients      sync.Map // ws client id -> *wsClient
	pending      sync.Map // request id -> chan string
	nextID       atomic.Int64
}

func NewWebChannel(cfg config.WebConfig, gwCfg config.GatewayConfig, b *bus.MessageBus) (*WebChannel, error) {
	port := gwCfg.Port
	if port == 0 {
		port = config.DefaultPort
	}

	ch := &WebChannel{
		BaseChannel:  NewBaseChannel(webChannelName, b, cfg.AllowFrom),
		host:         gwCfg.Host,
		port:         port,
		allowOrigins: cfg.AllowOrigins,
	}
	return ch, nil
}

func (w *WebChannel) Start(ctx context.Context) error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("embed static fs: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", w.handleWS)
	mux.HandleFunc("/api/chat", w.handleChat)

	w.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", w.host, w.port),
		Handler: mux,
	}

	go func() {
		log.Printf("[web] listening on %s", w.server.Addr)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[web] server error: %v", err)
		}
	}()

	return nil
}

// handleChat is the synchronous REST surface: one message in, one reply out.
// The session id rides a cookie so the gateway can remember entities (like a
// name) across calls from the same browser.
func (w *WebChannel) handleChat(wr http.ResponseWriter, r *http.Request) {
	w.setCORS(wr, r)
	if r.Method == http.MethodOptions {
		wr.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(wr, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(wr, "invalid request body", http.StatusBadRequest)
		return
	}

	sid := w.sessionID(wr, r)
	if !w.IsAllowed(sid) {
		http.Error(wr, "forbidden", http.StatusForbidden)
		return
	}

	wr.Header().Set("Content-Type", "application/json")

	if strings.TrimSpace(req.Message) == "" {
		_ = json.NewEncoder(wr).Encode(chatResponse{Reply: "Please type something."})
		return
	}

	requestID := uuid.NewString()
	replyCh := make(chan string, 1)
	w.pending.Store(requestID, replyCh)
	defer w.pending.Delete(requestID)

	w.bus.Inbound <- bus.InboundMessage{
		Channel:   webChannelName,
		SenderID:  sid,
		ChatID:    sid,
		Content:   req.Message,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"request_id": requestID},
	}

	select {
	case reply := <-replyCh:
		_ = json.NewEncoder(wr).Encode(chatResponse{Reply: reply})
	case <-time.After(replyTimeout):
		http.Error(wr, "reply timeout", http.StatusGatewayTimeout)
	case <-r.Context().Done():
	}
}

func (w *WebChannel) sessionID(wr http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	sid := uuid.NewString()
	http.SetCookie(wr, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	return sid
}

func (w *WebChannel) setCORS(wr http.ResponseWriter, r *http.Request) {
	origin := "*"
	if len(w.allowOrigins) > 0 {
		origin = w.allowOrigins[0]
		for _, o := range w.allowOrigins {
			if o == r.Header.Get("Origin") {
				origin = o
				break
			}
		}
	}
	wr.Header().Set("Access-Control-Allow-Origin", origin)
	wr.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	wr.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (w *WebChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[web] websocket accept error: %v", err)
		return
	}

	clientID := fmt.Sprintf("web-%d", w.nextID.Add(1))
	client := &wsClient{conn: conn, id: clientID}
	w.clients.Store(clientID, client)
	log.Printf("[web] client connected: %s", clientID)

	defer func() {
		w.clients.Delete(clientID)
		conn.CloseNow()
		log.Printf("[web] client disconnected: %s", clientID)
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type != "message" || msg.Content == "" {
			continue
		}

		if !w.IsAllowed(clientID) {
			log.Printf("[web] rejected message from %s", clientID)
			continue
		}

		w.bus.Inbound <- bus.InboundMessage{
			Channel:   webChannelName,
			SenderID:  clientID,
			ChatID:    clientID,
			Content:   msg.Content,
			Timestamp: time.Now(),
		}
	}
}

func (w *WebChannel) Send(msg bus.OutboundMessage) error {
	// REST replies carry the request id they answer
	if msg.ReplyTo != "" {
		if ch, ok := w.pending.Load(msg.ReplyTo); ok {
			select {
			case ch.(chan string) <- msg.Content:
			default:
			}
			return nil
		}
	}

	data, err := json.Marshal(wsMessage{
		Type:    "message",
		Content: msg.Content,
	})
	if err != nil {
		return err
	}

	client, ok := w.clients.Load(msg.ChatID)
	if !ok {
		// Broadcast to all clients if no specific target
		w.clients.Range(func(key, value any) bool {
			c := value.(*wsClient)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.conn.Write(ctx, websocket.MessageText, data)
			return true
		})
		return nil
	}

	c := client.(*wsClient)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (w *WebChannel) Stop() error {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			log.Printf("[web] shutdown error: %v", err)
		}
	}
	w.clients.Range(func(key, value any) bool {
		c := value.(*wsClient)
		c.conn.CloseNow()
		return true
	})
	log.Printf("[web] stopped")
	return nil
}
