package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/cyberlab/internal/labs"
	"github.com/ppiankov/cyberlab/internal/model"
	"github.com/ppiankov/cyberlab/internal/server"
)

// DefaultTimeout bounds every RPC issued by the client.
const DefaultTimeout = 5 * time.Second

// Client connects to a cyberlab gRPC server.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// New creates a gRPC client for the given address. The connection is
// established lazily on the first call.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to lab server: %w", err)
	}
	return &Client{conn: conn, timeout: DefaultTimeout}, nil
}

func (c *Client) call(ctx context.Context, method string, req any, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	in, err := server.ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, server.FullMethod(method), in, out); err != nil {
		return err
	}
	return server.FromStruct(out, resp)
}

// Labs lists the labs the server offers.
func (c *Client) Labs(ctx context.Context) ([]labs.Info, error) {
	var resp struct {
		Labs []labs.Info `json:"labs"`
	}
	if err := c.call(ctx, server.MethodListLabs, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Labs, nil
}

// Payloads returns the example payloads of one lab.
func (c *Client) Payloads(ctx context.Context, lab string) ([]model.Payload, error) {
	var resp struct {
		Payloads []model.Payload `json:"payloads"`
	}
	if err := c.call(ctx, server.MethodListPayloads, map[string]string{"lab": lab}, &resp); err != nil {
		return nil, err
	}
	return resp.Payloads, nil
}

// Classify asks the server to classify one submission.
func (c *Client) Classify(ctx context.Context, sub model.Submission) (model.Result, error) {
	var res model.Result
	if err := c.call(ctx, server.MethodClassify, sub, &res); err != nil {
		return model.Result{}, err
	}
	return res, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
