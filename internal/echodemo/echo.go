// Package echodemo holds the runnable guts of the echo demo (cmd/osiris-echo
// calls Run): the Go rendering of
// original_source/examples/echo.rs's listener/client pair as explicit
// step-based future state machines, since Go has no compiler-generated
// coroutine state machine to lean on the way async fn/.await does.
//
// Socket creation (socket/bind/listen/connect's initial fd) happens via
// ordinary blocking syscalls — those aren't completion-ring operations,
// just one-time setup — while every read/write/accept/connect afterward
// rides the reactor.
package echodemo

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/osiris-go"
	"github.com/ehrlich-b/osiris-go/buf"
	"github.com/ehrlich-b/osiris-go/future"
	"github.com/ehrlich-b/osiris-go/internal/bufpool"
	"github.com/ehrlich-b/osiris-go/reactor"
)

// Run binds a listener on host:port, starts a Runtime, and drives one
// client round trip against a detached accept loop, returning the message
// the client saw echoed back.
func Run(cfg osiris.Config, host string, port int) (string, error) {
	rt, err := osiris.New(cfg)
	if err != nil {
		return "", fmt.Errorf("osiris.New: %w", err)
	}
	defer rt.Close()

	addr, err := parseIPv4(host)
	if err != nil {
		return "", err
	}

	fd, err := listenFdAt(addr, port)
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}

	result, err := osiris.BlockOn(rt, newDemo(fd, addr, port))
	if err != nil {
		return "", fmt.Errorf("block_on: %w", err)
	}
	if result.Err != nil {
		return "", fmt.Errorf("client round trip: %w", result.Err)
	}
	return result.Msg, nil
}

func listenFdAt(addr [4]byte, port int) (int32, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return 0, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return 0, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return 0, err
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
		unix.Close(fd)
		return 0, err
	}
	if err := unix.Listen(fd, 16); err != nil {
		unix.Close(fd)
		return 0, err
	}
	return int32(fd), nil
}

func parseIPv4(host string) ([4]byte, error) {
	ip := net.ParseIP(host).To4()
	if ip == nil {
		return [4]byte{}, fmt.Errorf("not an IPv4 address: %q", host)
	}
	var out [4]byte
	copy(out[:], ip)
	return out, nil
}

// encodeSockaddr4 packs an IPv4 host:port into the 8-byte layout the
// reactor's epoll/kqueue fallback decoder (sockaddrFromBytes) expects:
// family (2 bytes, native order), port (2 bytes, big-endian), then the 4
// address bytes.
func encodeSockaddr4(ip [4]byte, port int) *buf.Bytes {
	b := buf.NewBytesZeroed(8)
	b.SetInit(8)
	raw := b.Slice()
	raw[0] = byte(unix.AF_INET)
	raw[1] = byte(unix.AF_INET >> 8)
	raw[2] = byte(port >> 8)
	raw[3] = byte(port)
	copy(raw[4:8], ip[:])
	return b
}

// demoResult is what the root future hands back to BlockOn: whatever the
// client task saw, plus any error from either the client itself or from
// joining it (a panic or abort would surface through the latter).
type demoResult struct {
	Msg string
	Err error
}

// demoFuture spawns the detached server accept loop and the one client on
// its first poll, then just waits on the client's JoinHandle.
type demoFuture struct {
	listenFd int32
	addr     [4]byte
	port     int
	started  bool
	client   joinable
}

// joinable narrows *task.JoinHandle[clientResult] down to the one method
// demoFuture needs, so this file doesn't have to import package task just
// for a type name.
type joinable = interface {
	Join(cx *future.Context) (clientResult, bool, error)
}

func newDemo(listenFd int32, addr [4]byte, port int) *demoFuture {
	return &demoFuture{listenFd: listenFd, addr: addr, port: port}
}

func (d *demoFuture) Poll(cx *future.Context) (demoResult, bool) {
	if !d.started {
		d.started = true
		r := osiris.CurrentReactor()
		osiris.Spawn[struct{}](newAcceptLoop(r, d.listenFd)).Detach()
		d.client = osiris.Spawn[clientResult](newClientFuture(r, d.addr, d.port))
	}

	val, done, err := d.client.Join(cx)
	if !done {
		return demoResult{}, false
	}
	if err != nil {
		return demoResult{Err: err}, true
	}
	return demoResult{Msg: val.Msg, Err: val.Err}, true
}

// acceptLoopFuture never completes: it keeps accepting connections and
// detaching a handler for each, the Go rendering of echo.rs's
// `loop { detach(handle_client(listener.accept().await)) }`.
type acceptLoopFuture struct {
	r       *reactor.Reactor
	fd      int32
	pending *reactor.OpFuture[struct{}, reactor.AcceptResult]
}

func newAcceptLoop(r *reactor.Reactor, fd int32) *acceptLoopFuture {
	return &acceptLoopFuture{r: r, fd: fd}
}

func (a *acceptLoopFuture) Poll(cx *future.Context) (struct{}, bool) {
	if a.pending == nil {
		a.pending = reactor.Accept(a.r, a.fd)
	}
	res, done := a.pending.Poll(cx)
	if !done {
		return struct{}{}, false
	}
	a.pending = nil
	if res.Errno == 0 {
		osiris.Spawn[struct{}](newHandleClient(a.r, res.Fd)).Detach()
	}
	cx.Waker.Wake()
	return struct{}{}, false
}

// handleClientFuture reads one message, echoes it back, and closes —
// echo.rs's handle_client. Its receive buffer comes from internal/bufpool
// rather than a fresh allocation, since a connection handler is exactly
// the short-lived, high-turnover buffer consumer that pool exists for;
// it's returned once the handler has no further use for it.
type handleClientFuture struct {
	r    *reactor.Reactor
	fd   int32
	step int
	buf  *buf.Bytes
	recv *reactor.OpFuture[*buf.Bytes, reactor.ReadResult[*buf.Bytes]]
	send *reactor.OpFuture[*buf.Bytes, reactor.WriteResult[*buf.Bytes]]
	cls  *reactor.OpFuture[struct{}, reactor.SimpleResult]
}

func newHandleClient(r *reactor.Reactor, fd int32) *handleClientFuture {
	return &handleClientFuture{r: r, fd: fd}
}

func (h *handleClientFuture) Poll(cx *future.Context) (struct{}, bool) {
	switch h.step {
	case 0:
		if h.recv == nil {
			h.buf = bufpool.Get(1048)
			h.recv = reactor.Recv(h.r, h.fd, h.buf)
		}
		_, done := h.recv.Poll(cx)
		if !done {
			return struct{}{}, false
		}
		h.step = 1
		fallthrough
	case 1:
		if h.send == nil {
			h.send = reactor.Send(h.r, h.fd, h.buf)
		}
		_, done := h.send.Poll(cx)
		if !done {
			return struct{}{}, false
		}
		bufpool.Put(h.buf)
		h.step = 2
		fallthrough
	default:
		if h.cls == nil {
			h.cls = reactor.Close(h.r, h.fd)
		}
		_, done := h.cls.Poll(cx)
		return struct{}{}, done
	}
}

// clientResult is what clientFuture hands back: the echoed message it
// received, and an error if anything along the way failed.
type clientResult struct {
	Msg string
	Err error
}

// clientFuture connects, writes a message, reads the echo back, and
// reports it — echo.rs's run_client.
type clientFuture struct {
	r       *reactor.Reactor
	addr    [4]byte
	port    int
	fd      int32
	step    int
	msg     string
	sendBuf *buf.Bytes
	recvBuf *buf.Bytes
	conn    *reactor.OpFuture[buf.StableBuffer, reactor.ConnectResult]
	send    *reactor.OpFuture[*buf.Bytes, reactor.WriteResult[*buf.Bytes]]
	recv    *reactor.OpFuture[*buf.Bytes, reactor.ReadResult[*buf.Bytes]]
}

func newClientFuture(r *reactor.Reactor, addr [4]byte, port int) *clientFuture {
	return &clientFuture{r: r, addr: addr, port: port, msg: "the code is: 42"}
}

func (c *clientFuture) Poll(cx *future.Context) (clientResult, bool) {
	switch c.step {
	case 0:
		if c.conn == nil {
			fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
			if err != nil {
				return clientResult{Err: err}, true
			}
			unix.SetNonblock(fd, true)
			c.fd = int32(fd)
			c.conn = reactor.Connect(c.r, c.fd, encodeSockaddr4(c.addr, c.port))
		}
		res, done := c.conn.Poll(cx)
		if !done {
			return clientResult{}, false
		}
		if res.Errno != 0 {
			return clientResult{Err: fmt.Errorf("connect: errno %d", res.Errno)}, true
		}
		c.step = 1
		fallthrough
	case 1:
		if c.send == nil {
			c.sendBuf = buf.NewBytes([]byte(c.msg))
			c.send = reactor.Send(c.r, c.fd, c.sendBuf)
		}
		_, done := c.send.Poll(cx)
		if !done {
			return clientResult{}, false
		}
		c.step = 2
		fallthrough
	default:
		if c.recv == nil {
			c.recvBuf = buf.NewBytesZeroed(2048)
			c.recv = reactor.Recv(c.r, c.fd, c.recvBuf)
		}
		res, done := c.recv.Poll(cx)
		if !done {
			return clientResult{}, false
		}
		reactor.Close(c.r, c.fd)
		if res.Errno != 0 {
			return clientResult{Err: fmt.Errorf("recv: errno %d", res.Errno)}, true
		}
		return clientResult{Msg: string(res.Buf.Slice())}, true
	}
}
