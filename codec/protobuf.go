package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Protobuf encodes values as a google.protobuf.Any holding a well-known
// wrapper: StringValue, BoolValue, Int64Value or DoubleValue for scalars and
// google.protobuf.Value for everything else. Unlike structpb alone, integers
// keep their kind across a round trip.
type Protobuf struct{}

var _ Codec[any] = Protobuf{}

func (Protobuf) Encode(v any) ([]byte, error) {
	var msg proto.Message
	switch x := v.(type) {
	case string:
		msg = wrapperspb.String(x)
	case bool:
		msg = wrapperspb.Bool(x)
	case int:
		msg = wrapperspb.Int64(int64(x))
	case int8:
		msg = wrapperspb.Int64(int64(x))
	case int16:
		msg = wrapperspb.Int64(int64(x))
	case int32:
		msg = wrapperspb.Int64(int64(x))
	case int64:
		msg = wrapperspb.Int64(x)
	case uint8:
		msg = wrapperspb.Int64(int64(x))
	case uint16:
		msg = wrapperspb.Int64(int64(x))
	case uint32:
		msg = wrapperspb.Int64(int64(x))
	case float32:
		msg = wrapperspb.Double(float64(x))
	case float64:
		msg = wrapperspb.Double(x)
	default:
		sv, err := structpb.NewValue(v)
		if err != nil {
			return nil, fmt.Errorf("protobuf codec: %w", err)
		}
		msg = sv
	}
	a, err := anypb.New(msg)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(a)
}

func (Protobuf) Decode(b []byte) (any, error) {
	var a anypb.Any
	if err := proto.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	m, err := a.UnmarshalNew()
	if err != nil {
		return nil, err
	}
	switch x := m.(type) {
	case *wrapperspb.StringValue:
		return x.GetValue(), nil
	case *wrapperspb.BoolValue:
		return x.GetValue(), nil
	case *wrapperspb.Int64Value:
		return int(x.GetValue()), nil
	case *wrapperspb.DoubleValue:
		return x.GetValue(), nil
	case *structpb.Value:
		return x.AsInterface(), nil
	}
	return nil, fmt.Errorf("protobuf codec: unexpected message %s", a.GetTypeUrl())
}
