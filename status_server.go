package goscar

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/heyvito/goscar/internal/containers"
	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/resources"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Interval between snapshots pushed to live clients.
	snapshotPeriod = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type statusPage struct {
	StartedAt string          `json:"startedAt"`
	Advertise string          `json:"advertise"`
	Services  []statusService `json:"services"`
	Latency   statusLatency   `json:"latency"`
}

type statusService struct {
	Name     string          `json:"name"`
	Address  string          `json:"address"`
	Sessions []statusSession `json:"sessions"`
}

type statusSession struct {
	Remote       string `json:"remote"`
	Identity     string `json:"identity,omitempty"`
	State        string `json:"state"`
	LastInbound  int    `json:"lastInbound"`
	LastOutbound int    `json:"lastOutbound"`
	Since        string `json:"since"`
}

type statusLatency struct {
	Count int    `json:"count"`
	P50   string `json:"p50"`
	P90   string `json:"p90"`
	P99   string `json:"p99"`
}

type statusUpdate struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}

type statusHubClient struct {
	send chan []byte
	hub  *statusHub
	conn *websocket.Conn
}

func (c *statusHubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *statusHubClient) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Live client failed", zap.Error(err))
			}
			return
		}
	}
}

// statusHub fans snapshots out to every connected websocket client. Client
// bookkeeping is owned by run.
type statusHub struct {
	clients    map[*statusHubClient]bool
	broadcast  chan any
	register   chan *statusHubClient
	unregister chan *statusHubClient
	done       chan struct{}
	finished   chan struct{}

	hasClient atomic.Bool
	logger    *zap.Logger
}

func newStatusHub(logger *zap.Logger) *statusHub {
	return &statusHub{
		clients:    map[*statusHubClient]bool{},
		broadcast:  make(chan any, 16),
		register:   make(chan *statusHubClient),
		unregister: make(chan *statusHubClient),
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
		logger:     logger,
	}
}

func (s *statusHub) join(c *statusHubClient) bool {
	select {
	case s.register <- c:
		return true
	case <-s.done:
		return false
	}
}

func (s *statusHub) leave(c *statusHubClient) {
	select {
	case s.unregister <- c:
	case <-s.done:
	}
}

func (s *statusHub) publish(v any) {
	select {
	case s.broadcast <- v:
	case <-s.done:
	}
}

func (s *statusHub) drop(c *statusHubClient) {
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.hasClient.Store(len(s.clients) > 0)
}

func (s *statusHub) run() {
	defer close(s.finished)
	for {
		select {
		case client := <-s.register:
			s.clients[client] = true
			s.hasClient.Store(true)

		case client := <-s.unregister:
			s.drop(client)

		case object := <-s.broadcast:
			v, err := json.Marshal(object)
			if err != nil {
				s.logger.Error("Failed marshalling object", zap.Error(err))
				continue
			}
			for client := range s.clients {
				select {
				case client.send <- v:
				default:
					s.drop(client)
				}
			}

		case <-s.done:
			for client := range s.clients {
				s.drop(client)
			}
			return
		}
	}
}

func (s *statusHub) stop() {
	close(s.done)
	<-s.finished
}

type statusServer struct {
	server          *Server
	httpServer      *http.Server
	l               net.Listener
	headTemplate    *template.Template
	serviceTemplate *template.Template
	footerTemplate  *template.Template
	logger          *zap.Logger
	hub             *statusHub
	startedAt       time.Time
	tickerDone      sync.WaitGroup
}

func newStatusServer(logger *zap.Logger, parent *Server, address string) (*statusServer, error) {
	head, err := template.New("head").Parse(resources.StatusPageHead)
	if err != nil {
		return nil, err
	}

	svc, err := template.New("service").Parse(resources.StatusPageService)
	if err != nil {
		return nil, err
	}

	footer, err := template.New("footer").Parse(resources.StatusPageFooter)
	if err != nil {
		return nil, err
	}

	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	return &statusServer{
		logger:          logger,
		server:          parent,
		l:               l,
		headTemplate:    head,
		serviceTemplate: svc,
		footerTemplate:  footer,
		hub:             newStatusHub(logger.Named("hub")),
		startedAt:       time.Now(),
	}, nil
}

func (s *statusServer) snapshot() statusPage {
	entries := s.server.registry.Entries()
	service := func(name string, addr net.Addr) statusService {
		return statusService{
			Name:    name,
			Address: addr.String(),
			Sessions: containers.MapFn(containers.Filter(entries, func(e core.Entry) bool {
				return e.Service == name
			}), statusSessionFromEntry),
		}
	}

	lat := s.server.metrics.Latency
	return statusPage{
		StartedAt: s.startedAt.Format(time.RFC3339),
		Advertise: s.server.advertise,
		Services:  []statusService{service(ServiceAuth, s.server.AuthAddr()), service(ServiceBOS, s.server.BOSAddr())},
		Latency: statusLatency{
			Count: lat.Count(),
			P50:   lat.Quantile(0.5).String(),
			P90:   lat.Quantile(0.9).String(),
			P99:   lat.Quantile(0.99).String(),
		},
	}
}

func statusSessionFromEntry(e core.Entry) statusSession {
	return statusSession{
		Remote:       e.Remote,
		Identity:     e.Identity,
		State:        e.State.String(),
		LastInbound:  int(e.LastInbound),
		LastOutbound: int(e.LastOutbound),
		Since:        e.Since.Format(time.RFC3339),
	}
}

func (s *statusServer) render(output io.Writer) error {
	page := s.snapshot()

	if err := s.headTemplate.Execute(output, page); err != nil {
		return err
	}

	for _, svc := range page.Services {
		if err := s.serviceTemplate.Execute(output, svc); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(output, "<script type=\"text/javascript\">\n"+resources.StatusPageScript+"\n</script>"); err != nil {
		return err
	}

	return s.footerTemplate.Execute(output, page)
}

func (s *statusServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/" {
			http.NotFound(writer, request)
			return
		}
		writer.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.render(writer); err != nil {
			writer.WriteHeader(http.StatusInternalServerError)
			_, _ = writer.Write([]byte("Internal server error"))
			s.logger.Error("Failed serving status request", zap.Error(err))
		}
	})
	mux.HandleFunc("/sessions", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(writer).Encode(s.snapshot()); err != nil {
			s.logger.Error("Failed encoding sessions", zap.Error(err))
		}
	})
	mux.Handle("/metrics", s.server.metrics.Handler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error("Failed upgrading connection", zap.Error(err))
			return
		}
		s.serviceClient(conn)
	})
	return mux
}

func (s *statusServer) start() {
	s.httpServer = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(s.l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server failed", zap.Error(err))
		}
	}()

	go s.hub.run()

	s.tickerDone.Add(1)
	go func() {
		defer s.tickerDone.Done()
		t := time.NewTicker(snapshotPeriod)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if !s.hub.hasClient.Load() {
					continue
				}
				s.hub.publish(statusUpdate{Kind: "snapshot", Payload: s.snapshot()})
			case <-s.hub.done:
				return
			}
		}
	}()

	s.logger.Info("Status server listening", zap.String("address", s.l.Addr().String()))
}

func (s *statusServer) stop() {
	if s.httpServer == nil {
		_ = s.l.Close()
		return
	}
	s.hub.stop()
	s.tickerDone.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(ctx)
}

func (s *statusServer) serviceClient(conn *websocket.Conn) {
	c := &statusHubClient{
		send: make(chan []byte, 16),
		conn: conn,
		hub:  s.hub,
	}
	if !s.hub.join(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
	s.hub.publish(statusUpdate{Kind: "snapshot", Payload: s.snapshot()})
}
