package onepeace

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

// DefaultService is the fully-qualified name of the embedder service.
const DefaultService = "one_peace.OnePeaceEmbedder"

// ErrDimensionMismatch is returned when the service answers with a vector of unexpected length.
var ErrDimensionMismatch = errors.New("onepeace: unexpected vector dimensionality")

// Config holds the ONE-PEACE connection settings.
type Config struct {
	Addr       string
	Service    string
	Dimensions int
	Logger     *zap.Logger
}

// Client implements domain.MultimodalEmbedder over gRPC.
type Client struct {
	conn       *grpc.ClientConn
	textMethod string
	imgMethod  string
	dimensions int
	logger     *zap.Logger
}

// New creates a lazily connecting client. Extra options are appended after the defaults
// (insecure transport, wire codec).
func New(cfg Config, opts ...grpc.DialOption) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("onepeace: address is required")
	}
	service := cfg.Service
	if service == "" {
		service = DefaultService
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec{})),
	}, opts...)

	conn, err := grpc.NewClient(cfg.Addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("onepeace: create client for %s: %w", cfg.Addr, err)
	}

	return &Client{
		conn:       conn,
		textMethod: "/" + service + "/EncodeText",
		imgMethod:  "/" + service + "/EncodeImage",
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// EmbedText implements domain.MultimodalEmbedder.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var reply embeddingReply
	if err := c.conn.Invoke(ctx, c.textMethod, &textRequest{Text: text}, &reply); err != nil {
		return nil, fmt.Errorf("onepeace EncodeText: %w", err)
	}
	return c.check(reply.Vector)
}

// EmbedImage implements domain.MultimodalEmbedder. The encoded file bytes are sent as is.
func (c *Client) EmbedImage(ctx context.Context, img ticket.Image) ([]float32, error) {
	var reply embeddingReply
	if err := c.conn.Invoke(ctx, c.imgMethod, &imageRequest{Content: img.Content}, &reply); err != nil {
		return nil, fmt.Errorf("onepeace EncodeImage: %w", err)
	}
	return c.check(reply.Vector)
}

func (c *Client) check(vec []float32) ([]float32, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("onepeace: empty vector: %w", ErrDimensionMismatch)
	}
	if c.dimensions > 0 && len(vec) != c.dimensions {
		c.logger.Warn("ONE-PEACE vector size mismatch",
			zap.Int("got", len(vec)), zap.Int("want", c.dimensions))
		return nil, fmt.Errorf("onepeace: got %d dimensions, want %d: %w", len(vec), c.dimensions, ErrDimensionMismatch)
	}
	return vec, nil
}

// HealthCheck waits until the channel is ready or ctx expires.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.conn.Connect()
	for {
		state := c.conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure, connectivity.Shutdown:
			return fmt.Errorf("onepeace: channel is %s", state)
		}
		if !c.conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("onepeace: channel is %s: %w", state, ctx.Err())
		}
	}
}
