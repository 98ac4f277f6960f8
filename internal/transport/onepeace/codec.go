package onepeace

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire messages of the embedder service. Every message carries its payload in field 1:
//
//	TextRequest      { string text = 1; }
//	ImageRequest     { bytes content = 1; }
//	EmbeddingReply   { repeated float vector = 1; }
type (
	textRequest    struct{ Text string }
	imageRequest   struct{ Content []byte }
	embeddingReply struct{ Vector []float32 }
)

const payloadField protowire.Number = 1

// codec encodes the three messages above without generated code.
// Name reports "proto" so the content-subtype matches what protobuf servers expect.
type codec struct{}

func (codec) Name() string { return "proto" }

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *textRequest:
		b := protowire.AppendTag(nil, payloadField, protowire.BytesType)
		return protowire.AppendString(b, m.Text), nil
	case *imageRequest:
		b := protowire.AppendTag(nil, payloadField, protowire.BytesType)
		return protowire.AppendBytes(b, m.Content), nil
	case *embeddingReply:
		packed := make([]byte, 0, 4*len(m.Vector))
		for _, f := range m.Vector {
			packed = protowire.AppendFixed32(packed, math.Float32bits(f))
		}
		b := protowire.AppendTag(nil, payloadField, protowire.BytesType)
		return protowire.AppendBytes(b, packed), nil
	default:
		return nil, fmt.Errorf("onepeace codec: unsupported message %T", v)
	}
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *textRequest:
		return walk(data, func(typ protowire.Type, b []byte) (int, error) {
			if typ != protowire.BytesType {
				return skip, nil
			}
			s, n := protowire.ConsumeString(b)
			m.Text = s
			return n, nil
		})
	case *imageRequest:
		return walk(data, func(typ protowire.Type, b []byte) (int, error) {
			if typ != protowire.BytesType {
				return skip, nil
			}
			c, n := protowire.ConsumeBytes(b)
			m.Content = append([]byte(nil), c...)
			return n, nil
		})
	case *embeddingReply:
		m.Vector = m.Vector[:0]
		return walk(data, func(typ protowire.Type, b []byte) (int, error) {
			switch typ {
			case protowire.BytesType:
				packed, n := protowire.ConsumeBytes(b)
				if n < 0 {
					return n, nil
				}
				if len(packed)%4 != 0 {
					return 0, fmt.Errorf("onepeace codec: packed vector of %d bytes", len(packed))
				}
				for len(packed) > 0 {
					u, k := protowire.ConsumeFixed32(packed)
					m.Vector = append(m.Vector, math.Float32frombits(u))
					packed = packed[k:]
				}
				return n, nil
			case protowire.Fixed32Type:
				u, n := protowire.ConsumeFixed32(b)
				if n >= 0 {
					m.Vector = append(m.Vector, math.Float32frombits(u))
				}
				return n, nil
			}
			return skip, nil
		})
	default:
		return fmt.Errorf("onepeace codec: unsupported message %T", v)
	}
}

// skip asks walk to treat a field 1 value of unexpected wire type as unknown.
// Negative lengths are protowire error codes, so the marker sits far below them.
const skip = math.MinInt32

// walk iterates over the fields of a message. field1 consumes the value of field 1 and
// returns the consumed length.
func walk(data []byte, field1 func(protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("onepeace codec: %w", protowire.ParseError(n))
		}
		data = data[n:]

		consumed := skip
		if num == payloadField {
			var err error
			if consumed, err = field1(typ, data); err != nil {
				return err
			}
		}
		if consumed == skip {
			consumed = protowire.ConsumeFieldValue(num, typ, data)
		}
		if consumed < 0 {
			return fmt.Errorf("onepeace codec: %w", protowire.ParseError(consumed))
		}
		data = data[consumed:]
	}
	return nil
}
