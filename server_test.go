package goscar

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/fsm"
	"github.com/heyvito/goscar/internal/handlers"
	"github.com/heyvito/goscar/internal/proto"
	"github.com/heyvito/goscar/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(o *Options)) *Server {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, st.Create(context.Background(), "neato", "neato@example.com", "password"))

	opts := &Options{
		AuthAddress:   "127.0.0.1:0",
		BOSAddress:    "127.0.0.1:0",
		StatusAddress: "127.0.0.1:0",
		Store:         st,
	}
	if mutate != nil {
		mutate(opts)
	}
	srv, err := NewServer(opts)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	return srv
}

type oscarClient struct {
	t       *testing.T
	conn    net.Conn
	decoder fsm.Stream[proto.Frame]
	pending []byte
	seq     uint16
	reqID   uint32
}

func dialOSCAR(t *testing.T, address string) *oscarClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", address, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	c := &oscarClient{t: t, conn: conn, decoder: proto.FLAPDecoder.New()}

	greeting := c.read()
	require.Equal(t, proto.FrameSignOn, greeting.Type)
	return c
}

func (c *oscarClient) send(t proto.FrameType, payload []byte) {
	c.t.Helper()
	f := proto.Frame{FLAP: proto.FLAP{Type: t, Sequence: c.seq}, Payload: payload}
	c.seq++
	buf := make([]byte, f.RequiredSize())
	f.Encode(buf)
	_, err := c.conn.Write(buf)
	require.NoError(c.t, err)
}

func (c *oscarClient) request(family proto.Family, subtype uint16, body []byte) {
	c.t.Helper()
	c.reqID++
	msg := proto.Message{SNAC: proto.SNAC{Family: family, Subtype: subtype, RequestID: c.reqID}, Body: body}
	buf := make([]byte, msg.RequiredSize())
	msg.Encode(buf)
	c.send(proto.FrameData, buf)
}

func (c *oscarClient) read() *proto.Frame {
	c.t.Helper()
	buf := make([]byte, 4096)
	for {
		for len(c.pending) > 0 {
			b := c.pending[0]
			c.pending = c.pending[1:]
			f, err := c.decoder.Feed(b)
			require.NoError(c.t, err)
			if f != nil {
				return f
			}
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := c.conn.Read(buf)
		require.NoError(c.t, err)
		c.pending = append(c.pending, buf[:n]...)
	}
}

func (c *oscarClient) readSNAC() (proto.SNAC, []byte) {
	c.t.Helper()
	f := c.read()
	require.Equal(c.t, proto.FrameData, f.Type)
	snac, body, err := proto.DecodeSNAC(f.Payload)
	require.NoError(c.t, err)
	return snac, body
}

func (c *oscarClient) expectEOF() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := c.conn.Read(make([]byte, 1))
	assert.ErrorIs(c.t, err, io.EOF)
}

// login runs the BUCP exchange and returns the BOS address and cookie.
func login(t *testing.T, srv *Server, screenName, password string) (string, []byte) {
	t.Helper()
	c := dialOSCAR(t, srv.AuthAddr().String())
	c.send(proto.FrameSignOn, []byte{0, 0, 0, 1})

	c.request(proto.FamilyBUCP, proto.BUCPChallengeRequest,
		proto.NewWriter().TLVs(proto.TLVString(handlers.TagScreenName, screenName)).Bytes())
	_, body := c.readSNAC()
	challenge, err := proto.NewReader(body).LStr16()
	require.NoError(t, err)

	digest := core.ResponseDigest(challenge, store.DigestPassword(password))
	c.request(proto.FamilyBUCP, proto.BUCPLoginRequest, proto.NewWriter().TLVs(
		proto.TLVString(handlers.TagScreenName, screenName),
		proto.TLVBytes(handlers.TagPasswordDigest, digest[:]),
		proto.TLVString(handlers.TagClientID, "goscar test"),
	).Bytes())
	snac, body := c.readSNAC()
	require.Equal(t, proto.BUCPLoginResponse, snac.Subtype)

	tlvs, err := proto.ReadTLVs(body)
	require.NoError(t, err)
	bos, ok := tlvs.Get(handlers.TagBOSAddress)
	require.True(t, ok)
	cookie, ok := tlvs.Get(handlers.TagCookie)
	require.True(t, ok)

	assert.Equal(t, proto.FrameSignOff, c.read().Type)
	c.expectEOF()
	return bos.Text(), cookie.Value
}

func getJSON(t *testing.T, url string, into any) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.NewDecoder(res.Body).Decode(into))
}

func TestServer_LoginAndSignOn(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.Equal(t, srv.BOSAddr().String(), srv.BOSAdvertiseAddress())

	bosAddr, cookie := login(t, srv, "neato", "password")
	assert.Equal(t, srv.BOSAdvertiseAddress(), bosAddr)

	bos := dialOSCAR(t, bosAddr)
	bos.send(proto.FrameSignOn, proto.NewWriter().U32(1).TLVs(proto.TLVBytes(handlers.TagCookie, cookie)).Bytes())
	snac, _ := bos.readSNAC()
	assert.Equal(t, proto.OServiceHostOnline, snac.Subtype)

	bos.request(proto.FamilyOService, proto.OServiceClientOnline, nil)
	status := "http://" + srv.StatusAddr().String()
	require.Eventually(t, func() bool {
		var page statusPage
		getJSON(t, status+"/sessions", &page)
		for _, svc := range page.Services {
			for _, s := range svc.Sessions {
				if svc.Name == ServiceBOS && s.Identity == "neato" && s.State == "online" {
					return true
				}
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return srv.ActiveSessions() == 1 }, 2*time.Second, 10*time.Millisecond)

	res, err := http.Get(status + "/metrics")
	require.NoError(t, err)
	raw, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `goscar_login_attempts_total{result="success"} 1`)
	assert.Contains(t, string(raw), `goscar_connections_total{listener="bos"} 1`)

	srv.Shutdown()
	bos.expectEOF()
	assert.Zero(t, srv.ActiveSessions())
}

func TestServer_RejectsBadPassword(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.SendLoginErrors = true })
	c := dialOSCAR(t, srv.AuthAddr().String())
	c.send(proto.FrameSignOn, []byte{0, 0, 0, 1})

	c.request(proto.FamilyBUCP, proto.BUCPChallengeRequest,
		proto.NewWriter().TLVs(proto.TLVString(handlers.TagScreenName, "neato")).Bytes())
	c.readSNAC()
	c.request(proto.FamilyBUCP, proto.BUCPLoginRequest, proto.NewWriter().TLVs(
		proto.TLVString(handlers.TagScreenName, "neato"),
		proto.TLVBytes(handlers.TagPasswordDigest, make([]byte, 16)),
	).Bytes())

	snac, body := c.readSNAC()
	assert.Equal(t, proto.BUCPLoginResponse, snac.Subtype)
	tlvs, err := proto.ReadTLVs(body)
	require.NoError(t, err)
	assert.True(t, tlvs.Has(handlers.TagErrorCode))
	c.expectEOF()
}

func TestServer_RequireCookie(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.RequireCookie = true })
	bos := dialOSCAR(t, srv.BOSAddr().String())
	bos.send(proto.FrameSignOn, []byte{0, 0, 0, 1})
	bos.expectEOF()
}

func TestServer_StatusPage(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.BOSAdvertiseAddress = "oscar.example:5191" })
	assert.Equal(t, "oscar.example:5191", srv.BOSAdvertiseAddress())
	base := "http://" + srv.StatusAddr().String()

	res, err := http.Get(base + "/")
	require.NoError(t, err)
	raw, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	page := string(raw)
	assert.Contains(t, page, "oscar.example:5191")
	assert.Contains(t, page, `id="sessions-auth"`)
	assert.Contains(t, page, `id="sessions-bos"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(page), "</html>"))

	res, err = http.Get(base + "/nope")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestServer_LiveFeed(t *testing.T) {
	srv := newTestServer(t, nil)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+srv.StatusAddr().String()+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update struct {
		Kind    string     `json:"kind"`
		Payload statusPage `json:"payload"`
	}
	require.NoError(t, ws.ReadJSON(&update))
	assert.Equal(t, "snapshot", update.Kind)
	require.Len(t, update.Payload.Services, 2)
	assert.Equal(t, ServiceAuth, update.Payload.Services[0].Name)
	assert.Equal(t, ServiceBOS, update.Payload.Services[1].Name)

	srv.Shutdown()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err = ws.ReadMessage(); err != nil {
			break
		}
	}
	assert.Error(t, err)
}

func TestOptions_Normalize(t *testing.T) {
	o := &Options{}
	require.NoError(t, o.normalize())
	assert.Equal(t, ":5190", o.AuthAddress)
	assert.Equal(t, ":5191", o.BOSAddress)
	assert.Equal(t, 10, o.MaxConnections)
	assert.Equal(t, 5*time.Minute, o.CookieTTL)
	assert.Len(t, o.CookieKey, 16)
	assert.NotNil(t, o.Store)
	assert.NotNil(t, o.LogHandler)

	o = &Options{MaxConnections: -1}
	require.NoError(t, o.normalize())
	assert.Zero(t, o.MaxConnections)

	assert.Error(t, (&Options{CookieKey: []byte("short")}).normalize())
	assert.Error(t, (&Options{ReadTimeout: -time.Second}).normalize())
}

func TestNewServer_BindFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	_, err = NewServer(&Options{AuthAddress: l.Addr().String(), BOSAddress: "127.0.0.1:0"})
	assert.Error(t, err)
}
