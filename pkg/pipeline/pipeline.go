package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"logbridge/pkg/codec"
)

// FrameType is the type tag frames are recorded under.
const FrameType = "StreamFrame"

// Frame is one message received from a stream source.
type Frame struct {
	Stream     string    `json:"stream"`
	ReceivedAt time.Time `json:"receivedAt"`
	Data       any       `json:"data"`
}

// Publisher is satisfied by *bridge.Publisher[Frame].
type Publisher interface {
	Publish(msg Frame, onComplete func()) error
}

// Run decodes raw frames from msgCh and publishes them. It returns when ctx
// is done, msgCh is closed or errCh delivers a source error. Frames that fail
// to decode or publish are logged and skipped.
func Run(ctx context.Context, msgCh <-chan []byte, errCh <-chan error, pub Publisher, stream string, log *zap.Logger) {
	c := codec.Default()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			frame, err := decode(c, msg, stream)
			if err != nil {
				log.Warn("dropping undecodable frame", zap.Error(err), zap.Int("bytes", len(msg)))
				continue
			}
			if err := pub.Publish(frame, nil); err != nil {
				log.Error("publish error", zap.String("stream", frame.Stream), zap.Error(err))
			}
		case err := <-errCh:
			log.Error("source error", zap.Error(err))
			return
		}
	}
}

// decode unwraps combined-stream envelopes ({"stream":..,"data":..}); any
// other JSON value becomes the frame data under the fallback stream name.
func decode(c *codec.Codec, msg []byte, stream string) (Frame, error) {
	var body any
	if err := c.Unmarshal(msg, &body); err != nil {
		return Frame{}, err
	}

	frame := Frame{Stream: stream, ReceivedAt: time.Now().UTC(), Data: body}
	if env, ok := body.(map[string]any); ok {
		name, hasName := env["stream"].(string)
		data, hasData := env["data"]
		if hasName && hasData && len(env) == 2 {
			frame.Stream = name
			frame.Data = data
		}
	}
	return frame, nil
}
