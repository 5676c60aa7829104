// Package scenario loads technology-tree scenarios from YAML, JSON and
// protobuf Struct payloads, validates them, and keeps a catalog of the
// scenarios a driver can offer.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownScenario   = errors.New("unknown scenario")
	ErrInvalidScenario   = errors.New("invalid scenario")
	ErrUnsupportedFormat = errors.New("unsupported scenario format")
	ErrMalformedScenario = errors.New("malformed scenario document")
)

// Format names a scenario encoding.
type Format string

const (
	FormatAuto      Format = ""
	FormatYAML      Format = "yaml"
	FormatJSON      Format = "json"
	FormatProto     Format = "proto"     // binary google.protobuf.Struct
	FormatProtoJSON Format = "protojson" // google.protobuf.Struct in protojson
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatAuto, FormatYAML, FormatJSON, FormatProto, FormatProtoJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".pb", ".binpb":
		return FormatProto, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// detect resolves FormatAuto by sniffing the payload. Binary Struct payloads
// are never guessed.
func detect(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Decode turns a payload into the untyped tree the validator expects.
func Decode(data []byte, f Format) (any, error) {
	if f == FormatAuto {
		raw, _, err := decodeAuto(data)
		return raw, err
	}
	return decode(data, f)
}

// decodeAuto decodes by sniffing and reports the format that succeeded. A
// payload that looks like JSON but fails to parse is retried as YAML, since
// flow-style YAML also starts with a brace.
func decodeAuto(data []byte) (any, Format, error) {
	f := detect(data)
	raw, err := decode(data, f)
	if err != nil && f == FormatJSON {
		if fromYAML, yerr := decode(data, FormatYAML); yerr == nil {
			return fromYAML, FormatYAML, nil
		}
	}
	return raw, f, err
}

// autoCandidates lists the formats FormatAuto may resolve to, most likely first.
func autoCandidates(data []byte) []Format {
	if detect(data) == FormatJSON {
		return []Format{FormatJSON, FormatYAML}
	}
	return []Format{FormatYAML}
}

func decode(data []byte, f Format) (any, error) {
	switch f {
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedScenario, err)
		}
		return raw, nil
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedScenario, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: trailing data after JSON document", ErrMalformedScenario)
		}
		return raw, nil
	case FormatProto:
		var st structpb.Struct
		if err := proto.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedScenario, err)
		}
		return st.AsMap(), nil
	case FormatProtoJSON:
		var st structpb.Struct
		if err := protojson.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedScenario, err)
		}
		return st.AsMap(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

// ToStruct converts an untyped scenario tree into a protobuf Struct.
func ToStruct(raw map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(normalize(raw).(map[string]any))
}

// normalize rewrites values structpb cannot represent directly, such as
// json.Number and YAML integers.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return v
	}
}
