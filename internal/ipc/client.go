package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves combined daemon and pool status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Foundry.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Daemons lists tracked worker daemons.
func (c *Client) Daemons() (*DaemonsResponse, error) {
	var resp DaemonsResponse
	if err := c.client.Call("Foundry.Daemons", DaemonsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopDaemons stops every tracked worker daemon.
func (c *Client) StopDaemons() (*StopDaemonsResponse, error) {
	var resp StopDaemonsResponse
	if err := c.client.Call("Foundry.StopDaemons", StopDaemonsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit runs one action on a matching worker daemon.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.client.Call("Foundry.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionStart opens a build session.
func (c *Client) SessionStart(logLevel string) (*SessionStartResponse, error) {
	var resp SessionStartResponse
	if err := c.client.Call("Foundry.SessionStart", SessionStartRequest{LogLevel: logLevel}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionEnd closes a build session.
func (c *Client) SessionEnd(id string) (*SessionEndResponse, error) {
	var resp SessionEndResponse
	if err := c.client.Call("Foundry.SessionEnd", SessionEndRequest{SessionID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History retrieves recent journal events and the worker history.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Foundry.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Foundry.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Foundry.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
