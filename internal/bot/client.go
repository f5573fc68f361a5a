package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// WSEvent is a game event pushed over the WebSocket.
type WSEvent struct {
	Type   string         `json:"type"`
	GameID string         `json:"game_id"`
	Data   map[string]any `json:"data"`
}

// Phase identifies whose turn it is and in which step.
type Phase struct {
	Name   string `json:"phase"`
	Player string `json:"player"`
	Round  int    `json:"round"`
}

// PhaseFromEvent reads the phase carried by a phase_changed event.
func PhaseFromEvent(e WSEvent) Phase {
	p := Phase{}
	p.Name, _ = e.Data["phase"].(string)
	p.Player, _ = e.Data["player"].(string)
	if r, ok := e.Data["round"].(float64); ok {
		p.Round = int(r)
	}
	return p
}

// MoveInput is the wire form of one move.
type MoveInput struct {
	UnitIDs   []string `json:"unit_ids"`
	Route     []string `json:"route"`
	Transport string   `json:"transport,omitempty"`
}

// Client is an HTTP+WebSocket client for one game on a remote server. It
// implements Executor.
type Client struct {
	baseURL  string
	gameID   string
	tokens   oauth2.TokenSource
	httpC    *http.Client
	wsConn   *websocket.Conn
	events   chan WSEvent
	mu       sync.Mutex
	closedWS bool
}

// NewClient creates a client for gameID on the server at baseURL. Every
// request carries a bearer token from tokens.
func NewClient(ctx context.Context, baseURL, gameID string, tokens oauth2.TokenSource) *Client {
	httpC := oauth2.NewClient(ctx, tokens)
	httpC.Timeout = 30 * time.Second
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		gameID:  gameID,
		tokens:  tokens,
		httpC:   httpC,
		events:  make(chan WSEvent, 64),
	}
}

// GameID returns the game this client plays.
func (c *Client) GameID() string { return c.gameID }

func (c *Client) gamePath(suffix string) string {
	return "/api/v1/games/" + c.gameID + suffix
}

// State fetches the current game snapshot.
func (c *Client) State(ctx context.Context) (*wargame.GameState, error) {
	body, err := c.get(ctx, c.gamePath("/state"))
	if err != nil {
		return nil, err
	}
	return wargame.DecodeSnapshot(body)
}

// CurrentPhase fetches the phase the game is in.
func (c *Client) CurrentPhase(ctx context.Context) (Phase, error) {
	var p Phase
	body, err := c.get(ctx, c.gamePath("/phases/current"))
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, fmt.Errorf("decode phase: %w", err)
	}
	return p, nil
}

// Move submits one move. It implements Executor.
func (c *Client) Move(ctx context.Context, units []*wargame.Unit, route *wargame.Route, transport *wargame.Unit) error {
	in := MoveInput{UnitIDs: wargame.UnitIDs(units), Route: route.All()}
	if transport != nil {
		in.Transport = transport.ID
	}
	return c.post(ctx, c.gamePath("/moves"), in)
}

// EndPhase tells the server this player is done with the current phase.
func (c *Client) EndPhase(ctx context.Context) error {
	return c.post(ctx, c.gamePath("/phases/current/done"), nil)
}

// ConnectWS opens a WebSocket connection and starts listening for events.
// The connection is closed once ctx is done.
func (c *Client) ConnectWS(ctx context.Context) error {
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("ws token: %w", err)
	}
	header := http.Header{}
	header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	context.AfterFunc(ctx, c.CloseWS)
	go c.readWSLoop(ctx)
	return nil
}

// Subscribe asks the server for the game's events.
func (c *Client) Subscribe() error {
	msg := map[string]string{"action": "subscribe", "game_id": c.gameID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

// readWSLoop forwards events until the connection fails or ctx is done. A
// consumer that stops reading never blocks it past ctx.
func (c *Client) readWSLoop(ctx context.Context) {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Str("gameId", c.gameID).Msg("WS read error")
			}
			return
		}
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}
		select {
		case c.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpC.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	return body, nil
}

// post sends a POST request and checks for errors without decoding the response body.
func (c *Client) post(ctx context.Context, path string, payload any) error {
	data := []byte("{}")
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, body)
	}
	return nil
}
