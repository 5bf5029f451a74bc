package collector

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/netaudit/pkg/inventory"
)

// Tunnel is an SSH connection to a device, used both to run show commands
// and to reach services bound to the device's loopback (e.g. SONiC redis,
// which has no authentication and listens only on 127.0.0.1).
type Tunnel struct {
	host   string
	client *ssh.Client
}

// DialTunnel opens an SSH connection to h. Host keys are checked against
// the file named by the host's "known_hosts" data key when set; otherwise
// any key is accepted.
func DialTunnel(ctx context.Context, h *inventory.Host, timeout time.Duration) (*Tunnel, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if path := h.Get("known_hosts", ""); path != "" {
		cb, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("loading known_hosts %s: %w", path, err)
		}
		hostKeyCallback = cb
	}

	config := &ssh.ClientConfig{
		User: h.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(h.Password),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	port := h.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(h.Address(), strconv.Itoa(port))

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s: %w", addr, err)
	}
	// The handshake deadline must not cut off long-running sessions.
	conn.SetDeadline(time.Time{})

	return &Tunnel{host: h.Name, client: ssh.NewClient(c, chans, reqs)}, nil
}

// Exec runs a command on the device and returns its stdout. The SSH session
// is created per call; a cancelled context closes it.
func (t *Tunnel) Exec(ctx context.Context, cmd string) ([]byte, error) {
	session, err := t.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Signal(ssh.SIGKILL)
			session.Close()
		case <-done:
		}
	}()

	out, err := session.Output(cmd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("SSH exec '%s': %w", cmd, err)
	}
	return out, nil
}

// Dial opens a connection to addr as seen from the device
func (t *Tunnel) Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := t.client.Dial(network, addr)
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Close closes the SSH connection
func (t *Tunnel) Close() error {
	return t.client.Close()
}
