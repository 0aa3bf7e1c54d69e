package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/xlatorfs/xlatorfs/auth"
	"github.com/xlatorfs/xlatorfs/gfid"
	"github.com/xlatorfs/xlatorfs/inode"
	"github.com/xlatorfs/xlatorfs/iobuf"
	"github.com/xlatorfs/xlatorfs/logging"
	"github.com/xlatorfs/xlatorfs/metrics"
	rpcclient "github.com/xlatorfs/xlatorfs/rpc/client"
	"github.com/xlatorfs/xlatorfs/rpc/record"
	"github.com/xlatorfs/xlatorfs/stack"
	"github.com/xlatorfs/xlatorfs/syncenv"
	"github.com/xlatorfs/xlatorfs/transport/socket"
	"github.com/xlatorfs/xlatorfs/virtualinode"
	"github.com/xlatorfs/xlatorfs/xlator"
)

// The "client" translator type is the one concrete protocol translator
// this daemon ships: it dials a remote brick over rpc/client + a real
// socket transport, evaluates the peer against the configured auth
// rules before connecting, resolves by-GFID lookups through the
// virtual-inode overlay, and draws its wire buffers from an iobuf.Pool.
// Every other translator type (passthrough) never touches the wire.
const (
	progFilesystem uint32 = 1
	versFilesystem uint32 = 1
	procLookup     uint32 = 1
	procStat       uint32 = 2
	procNullPing   uint32 = 0
)

// socketTransport adapts transport/socket.Conn to rpc/client.Transport.
// The two packages stay mutually unaware of each other (rpc/client.
// Transport exists precisely to avoid that import cycle); this daemon's
// composition root is where they are allowed to meet.
type socketTransport struct {
	addr string
	opts socket.Options

	mu    sync.Mutex
	conn  *socket.Conn
	owner *rpcclient.Connection
}

func (t *socketTransport) Connect(ctx context.Context) error {
	raw, err := socket.DialPrivileged("tcp", t.addr, t.opts)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", t.addr, err)
	}
	conn, err := socket.NewConn(raw, t.opts)
	if err != nil {
		return err
	}
	conn.OnPollin = func(p socket.Pollin) { t.owner.Deliver(p.Header, p.Payload) }
	conn.OnDisconnect = func(error) { t.owner.Disconnect(ctx) }

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go conn.ReadLoop()
	return nil
}

func (t *socketTransport) Submit(rec []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return errors.New("client: transport not connected")
	}
	return conn.Write(rec)
}

func (t *socketTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// clientXlator is the RPC-client-backed translator type registered as
// "client". It owns the remote peer's lookup cache (a second inode
// table, the same pattern the virtual-inode overlay uses for its own
// table) and the virtual-inode overlay itself, so by-GFID lookups under
// gfid.VirtualDir resolve without a second round trip through the
// kernel.
type clientXlator struct {
	xlator.Base

	engine *stack.Engine
	conn   *rpcclient.Connection
	pool   *iobuf.Pool
	table  *inode.Table
	virt   *virtualinode.Overlay
	log    *logging.Logger
}

func newClientFactory(log *logging.Logger, m *metrics.Registry) func(string, map[string]string, []xlator.Translator, *stack.Engine) (xlator.Translator, error) {
	return func(name string, options map[string]string, children []xlator.Translator, engine *stack.Engine) (xlator.Translator, error) {
		return newClientXlator(name, options, engine, log, m)
	}
}

func newClientXlator(name string, options map[string]string, engine *stack.Engine, log *logging.Logger, m *metrics.Registry) (xlator.Translator, error) {
	addr := options["address"]
	if addr == "" {
		return nil, fmt.Errorf("client: translator %q missing required option %q", name, "address")
	}

	allow := auth.ParseRules(options["allow"])
	reject := auth.ParseRules(options["reject"])
	if auth.Evaluate("/", addr, allow, reject) == auth.Reject {
		return nil, fmt.Errorf("client: translator %q: peer %s rejected by auth rules", name, addr)
	}

	privileged, _ := strconv.ParseBool(options["privileged"])
	allowInsecure, _ := strconv.ParseBool(options["allow-insecure"])
	opts := socket.DefaultOptions(socket.Inet)
	opts.Privileged = privileged
	opts.AllowInsecure = allowInsecure

	c := &clientXlator{
		engine: engine,
		pool:   iobuf.NewPool(0),
		table:  inode.NewTable(name+"-remote", 0),
		log:    log,
	}
	c.Base = xlator.NewBase(name, engine)
	c.Bind(c)

	transport := &socketTransport{addr: addr, opts: opts}
	conn := rpcclient.New(transport, addr)
	transport.owner = conn

	conn.OnStateChange = func(from, to rpcclient.State) {
		if c.log != nil {
			c.log.WithField("peer", addr).Infof("client: %s -> %s", from, to)
		}
		switch to {
		case rpcclient.Connected:
			c.Propagate(xlator.EventChildUp, nil, addr)
		case rpcclient.Disconnected:
			c.Propagate(xlator.EventChildDown, nil, addr)
		}
	}
	conn.OnPingLatency = func(d time.Duration) {
		if m != nil {
			m.RPCPingLatency.Observe(d.Seconds())
		}
	}
	conn.Ping = func(conn *rpcclient.Connection, cb func(rpcclient.Reply)) error {
		frame := engine.Root(stack.Anonymous)
		return conn.Submit(frame, progFilesystem, versFilesystem, procNullPing, record.Credential{}, nil, cb)
	}
	c.conn = conn

	c.virt = virtualinode.New(c.table, c.lookupDown, c)

	return c, nil
}

func (c *clientXlator) Init() error {
	if err := c.Base.Init(); err != nil {
		return err
	}
	c.conn.Connect(context.Background())
	return nil
}

// lookupDown satisfies virtualinode.LookupDown: a stat-like round trip
// used to confirm a by-GFID entry still exists once the overlay has
// constructed its placeholder real inode.
func (c *clientXlator) lookupDown(ctx context.Context, frame *stack.Frame, real *inode.Inode) (xlator.Iatt, syscall.Errno) {
	id := real.GFID()
	_, errno := c.roundTrip(ctx, frame, procStat, id[:])
	if errno != 0 {
		return xlator.Iatt{}, errno
	}
	return xlator.Iatt{}, 0
}

// Lookup resolves name against the remote peer, or — when parent is the
// well-known virtual directory — through the by-GFID overlay instead
// (spec.md §4.10).
func (c *clientXlator) Lookup(ctx context.Context, frame *stack.Frame, parent *inode.Inode, name string) (*inode.Inode, xlator.Iatt, xlator.Iatt, syscall.Errno) {
	if parent != nil && parent.GFID() == gfid.VirtualDir {
		n, iatt, errno := c.virt.Lookup(ctx, frame, name)
		return n, iatt, xlator.Iatt{}, errno
	}

	payload, errno := c.roundTrip(ctx, frame, procLookup, []byte(name))
	if errno != 0 {
		return nil, xlator.Iatt{}, xlator.Iatt{}, errno
	}
	if len(payload) < gfid.Size {
		return nil, xlator.Iatt{}, xlator.Iatt{}, syscall.EIO
	}
	var id gfid.ID
	copy(id[:], payload[:gfid.Size])

	placeholder := inode.New(c.table, inode.TypeUnknown)
	linked, err := c.table.Link(placeholder, parent, name, id, inode.TypeUnknown)
	if err != nil {
		return nil, xlator.Iatt{}, xlator.Iatt{}, syscall.EIO
	}
	c.table.Ref(linked)
	return linked, xlator.Iatt{}, xlator.Iatt{}, 0
}

// roundTrip submits one RPC call carrying body in an iobuf-pooled
// buffer, blocks the calling synctask on a syncenv.Future until the
// reply (or ctx cancellation) arrives, and returns the reply payload.
func (c *clientXlator) roundTrip(ctx context.Context, frame *stack.Frame, proc uint32, body []byte) ([]byte, syscall.Errno) {
	buf := c.pool.Get(len(body))
	copy(buf.Bytes(), body)
	defer buf.Unref()

	fut := syncenv.NewFuture[rpcclient.Reply]()
	cred := credentialFromFrame(frame)
	if err := c.conn.Submit(frame, progFilesystem, versFilesystem, proc, cred, buf.Bytes(), fut.Resolve); err != nil {
		return nil, syscall.ENOTCONN
	}

	reply, err := fut.Await(ctx)
	if err != nil {
		return nil, syscall.ETIMEDOUT
	}
	if reply.RPCErr {
		return nil, syscall.EIO
	}
	return reply.Payload, 0
}

func credentialFromFrame(frame *stack.Frame) record.Credential {
	id := stack.Anonymous
	if frame != nil && frame.Identity != nil {
		id = frame.Identity
	}
	return record.Credential{
		PID:     id.PID,
		UID:     id.UID,
		GID:     id.GID,
		LkOwner: id.LockOwner,
		Groups:  id.Groups,
	}
}
