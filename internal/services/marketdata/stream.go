package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"IgniteX/internal/domain/models"
	domsvc "IgniteX/internal/domain/service"
	"IgniteX/pkg/logger"

	"github.com/gorilla/websocket"
)

// WSPriceStream delivers trade prints over a WebSocket feed.
type WSPriceStream struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	connected   bool
	instruments []string
}

func NewWSPriceStream(websocketURL, apiKey string, reconnectDelay, pingInterval time.Duration, l *logger.Logger) *WSPriceStream {
	return &WSPriceStream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         l,
	}
}

// Connect establishes the WebSocket connection.
func (s *WSPriceStream) Connect(ctx context.Context) error {
	u := s.websocketURL
	if s.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("price stream connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.logger.Info("price stream connected", logger.String("url", s.websocketURL))
	return nil
}

// Subscribe registers the instruments to receive trade prints for. The set
// is remembered so Reconnect can restore it.
func (s *WSPriceStream) Subscribe(ctx context.Context, instruments []string) error {
	s.mu.Lock()
	conn := s.conn
	ok := s.connected
	s.instruments = append([]string(nil), instruments...)
	s.mu.Unlock()

	if conn == nil || !ok {
		return fmt.Errorf("price stream not connected")
	}
	for _, inst := range instruments {
		msg := map[string]string{"type": "subscribe", "symbol": inst}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", inst, err)
		}
		s.logger.Debug("price stream subscribed", logger.String("instrument", inst))
	}
	return nil
}

type wsTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// Read streams price ticks and errors until the context ends or the
// connection drops. A dropped connection closes both channels after the
// error is reported.
func (s *WSPriceStream) Read(ctx context.Context) (<-chan models.PriceTick, <-chan error) {
	ticks := make(chan models.PriceTick, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("price stream conn nil")
				return
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("price stream read: %w", err)
				return
			}

			var m wsMessage
			if err := json.Unmarshal(b, &m); err != nil {
				// non-trade frames are ignored
				continue
			}
			if m.Type != "trade" {
				continue
			}
			for _, d := range m.Data {
				tick := models.PriceTick{
					Instrument: d.S,
					Price:      d.P,
					Volume:     d.V,
					Timestamp:  time.UnixMilli(d.T),
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and re-establishes the connection, restoring the last
// subscription set.
func (s *WSPriceStream) Reconnect(ctx context.Context) error {
	_ = s.Close()

	select {
	case <-time.After(s.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.Connect(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	instruments := append([]string(nil), s.instruments...)
	s.mu.Unlock()
	if len(instruments) == 0 {
		return nil
	}
	return s.Subscribe(ctx, instruments)
}

// Close closes the WebSocket connection.
func (s *WSPriceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected reports connection status.
func (s *WSPriceStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

var _ domsvc.PriceStream = (*WSPriceStream)(nil)
