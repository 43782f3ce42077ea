package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/digestry/digestry/internal/accounts"
	"github.com/digestry/digestry/internal/client/config"
	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/logging"
	"github.com/digestry/digestry/internal/protocol"
)

const maxDatagramSize = 8192

// CheckResult carries the counters returned by the check and pong
// operations.
type CheckResult struct {
	Count   int64
	WLCount int64
}

// InfoResult carries the full per-digest detail returned by info. A zero
// time means the server has never recorded that event for the digest.
type InfoResult struct {
	Count     int64
	WLCount   int64
	Entered   time.Time
	Updated   time.Time
	WLEntered time.Time
	WLUpdated time.Time
}

// Client sends one-shot datagram requests to a single server.
type Client struct {
	log     logging.Logger
	addr    string
	timeout time.Duration
	account *accounts.Account
}

// New builds a client for cfg.Address. The accounts file is read once: when
// it has an entry for the configured host and port the client signs every
// request with that account, otherwise requests go out anonymous.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*Client, error) {
	accts, err := accounts.LoadClientAccounts(ctx, cfg.AccountsPath, log)
	if err != nil {
		return nil, err
	}

	host, portStr, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", cfg.Address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid server port %q: %w", portStr, err)
	}

	c := &Client{
		log:     log.With("module", "client"),
		addr:    cfg.Address,
		timeout: cfg.Timeout,
	}
	if acct, ok := accts[accounts.HostPort{Host: host, Port: port}]; ok {
		c.account = &acct
		c.log.Debug(ctx, "signing requests", "user", acct.Username, "server", cfg.Address)
	}
	return c, nil
}

// Ping checks that the server is alive.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.exchange(ctx, &protocol.Request{Op: protocol.OpPing})
	return err
}

// Pong asks for the diagnostic answer: the server replies as if digest had
// been reported the maximum number of times and whitelisted never.
func (c *Client) Pong(ctx context.Context, digest string) (*CheckResult, error) {
	if err := protocol.ValidateDigest(digest); err != nil {
		return nil, err
	}
	resp, err := c.exchange(ctx, &protocol.Request{Op: protocol.OpPong, Digest: digest})
	if err != nil {
		return nil, err
	}
	return parseCounts(resp)
}

// Check returns the report and whitelist counts recorded for digest.
func (c *Client) Check(ctx context.Context, digest string) (*CheckResult, error) {
	if err := protocol.ValidateDigest(digest); err != nil {
		return nil, err
	}
	resp, err := c.exchange(ctx, &protocol.Request{Op: protocol.OpCheck, Digest: digest})
	if err != nil {
		return nil, err
	}
	return parseCounts(resp)
}

// Report records one more sighting of digest.
func (c *Client) Report(ctx context.Context, digest string) error {
	if err := protocol.ValidateDigest(digest); err != nil {
		return err
	}
	_, err := c.exchange(ctx, &protocol.Request{Op: protocol.OpReport, Digest: digest})
	return err
}

// Whitelist records digest as known good.
func (c *Client) Whitelist(ctx context.Context, digest string) error {
	if err := protocol.ValidateDigest(digest); err != nil {
		return err
	}
	_, err := c.exchange(ctx, &protocol.Request{Op: protocol.OpWhitelist, Digest: digest})
	return err
}

// Info returns everything the server knows about digest.
func (c *Client) Info(ctx context.Context, digest string) (*InfoResult, error) {
	if err := protocol.ValidateDigest(digest); err != nil {
		return nil, err
	}
	resp, err := c.exchange(ctx, &protocol.Request{Op: protocol.OpInfo, Digest: digest})
	if err != nil {
		return nil, err
	}

	out := &InfoResult{}
	if out.Count, err = headerInt(resp, protocol.HeaderCount); err != nil {
		return nil, err
	}
	if out.WLCount, err = headerInt(resp, protocol.HeaderWLCount); err != nil {
		return nil, err
	}
	if out.Entered, err = headerTime(resp, protocol.HeaderEntered); err != nil {
		return nil, err
	}
	if out.Updated, err = headerTime(resp, protocol.HeaderUpdated); err != nil {
		return nil, err
	}
	if out.WLEntered, err = headerTime(resp, protocol.HeaderWLEntered); err != nil {
		return nil, err
	}
	if out.WLUpdated, err = headerTime(resp, protocol.HeaderWLUpdated); err != nil {
		return nil, err
	}
	return out, nil
}

// exchange performs one request/response round trip. The request gets a
// fresh thread id and, when an account is configured, a signature. Datagrams
// that fail to parse or answer a different thread are discarded and the read
// continues until the deadline.
func (c *Client) exchange(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	req.Thread = protocol.NewThread()
	req.Version = protocol.Version
	if c.account != nil {
		req.User = c.account.Username
		req.Time = time.Now().Unix()
		req.Sig = accounts.SignRequest(c.account.Key, req.User, req.Time, req.MarshalUnsigned())
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	if _, err := conn.Write(req.Marshal()); err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", c.addr, err)
	}

	buf := make([]byte, maxDatagramSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("waiting for response from %s: %w", c.addr, err)
		}
		resp, err := protocol.ParseResponse(buf[:n])
		if err != nil {
			c.log.Warn(ctx, "discarding undecodable datagram", "error", err)
			continue
		}
		if resp.Thread != req.Thread {
			c.log.Warn(ctx, "discarding response for another thread",
				"want", req.Thread, "got", resp.Thread)
			continue
		}
		if err := responseError(resp); err != nil {
			return nil, err
		}
		return resp, nil
	}
}

// responseError maps a non-OK response code to a sentinel error so callers
// can match it with errors.Is.
func responseError(resp *protocol.Response) error {
	if resp.Code == protocol.CodeOK {
		return nil
	}
	err := common.ErrorInternal
	switch resp.Code {
	case protocol.CodeBadRequest:
		err = common.ErrBadRequest
	case protocol.CodeUnauthorized:
		err = common.ErrorUnauthorized
	case protocol.CodeForbidden:
		err = common.ErrNotPermitted
	case protocol.CodeNotImplemented:
		err = common.ErrNotImplemented
	case protocol.CodeUnsupportedVersion:
		err = common.ErrVersionNotSupported
	}
	return fmt.Errorf("server replied %d %s: %w", resp.Code, resp.Diag, err)
}

func parseCounts(resp *protocol.Response) (*CheckResult, error) {
	count, err := headerInt(resp, protocol.HeaderCount)
	if err != nil {
		return nil, err
	}
	wl, err := headerInt(resp, protocol.HeaderWLCount)
	if err != nil {
		return nil, err
	}
	return &CheckResult{Count: count, WLCount: wl}, nil
}

func headerInt(resp *protocol.Response, name string) (int64, error) {
	v := resp.Get(name)
	if v == "" {
		return 0, fmt.Errorf("response is missing the %s header", name)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s header: %w", name, err)
	}
	return n, nil
}

// headerTime parses a unix-seconds header. The server sends -1 for an event
// it has never recorded; that comes back as the zero time.
func headerTime(resp *protocol.Response, name string) (time.Time, error) {
	v := resp.Get(name)
	if v == "" || v == "-1" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s header: %w", name, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}
