package server

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct converts an outbound message into a google.protobuf.Struct by way
// of its JSON form, so binary clients see the same field names.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	var st structpb.Struct
	if err := protojson.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("convert to struct: %w", err)
	}
	return &st, nil
}

// encodeProto renders an outbound message as a binary Struct frame.
func encodeProto(v any) ([]byte, error) {
	st, err := toStruct(v)
	if err != nil {
		return nil, err
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal error: %w", err)
	}
	return data, nil
}

// decodeProtoFrame parses a binary Struct frame into a plain map.
func decodeProtoFrame(data []byte) (map[string]any, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("protobuf unmarshal error: %w", err)
	}
	return st.AsMap(), nil
}
