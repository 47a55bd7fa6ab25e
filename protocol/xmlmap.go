// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// MapCodec converts map message bodies to and from bytes. Name is the
// transformation token advertised on SEND frames.
type MapCodec interface {
	Name() string
	Marshal(m map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

// XMLMapName is the transformation token of XMLMapCodec.
const XMLMapName = "jms-map-xml"

// Element names of the typed values.
const (
	elemBoolean   = "boolean"
	elemByte      = "byte"
	elemShort     = "short"
	elemInt       = "int"
	elemLong      = "long"
	elemFloat     = "float"
	elemDouble    = "double"
	elemByteArray = "byte-array"
	elemString    = "string"
	elemChar      = "char"
)

var _ MapCodec = (*XMLMapCodec)(nil)

// XMLMapCodec encodes a map as
//
//	<map><entry><string>key</string><int>1</int></entry>...</map>
//
// Entries are written in key order. Values must be primitives: nil values,
// nested maps and slices other than []byte are rejected.
type XMLMapCodec struct{}

type xmlMap struct {
	XMLName xml.Name   `xml:"map"`
	Entries []xmlEntry `xml:"entry"`
}

type xmlEntry struct {
	Values []xmlValue `xml:",any"`
}

type xmlValue struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

// Name returns XMLMapName.
func (XMLMapCodec) Name() string { return XMLMapName }

// Marshal encodes m.
func (XMLMapCodec) Marshal(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := xmlMap{Entries: make([]xmlEntry, 0, len(keys))}
	for _, k := range keys {
		v, err := encodeValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", k, err)
		}
		doc.Entries = append(doc.Entries, xmlEntry{Values: []xmlValue{element(elemString, k), v}})
	}

	return xml.Marshal(doc)
}

// Unmarshal decodes data produced by Marshal. Empty data yields an empty
// map.
func (XMLMapCodec) Unmarshal(data []byte) (map[string]any, error) {
	result := map[string]any{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return result, nil
	}

	var doc xmlMap
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for i, e := range doc.Entries {
		if len(e.Values) != 2 || e.Values[0].XMLName.Local != elemString {
			return nil, fmt.Errorf("%w: entry %d", ErrInvalidMapEntry, i)
		}
		key := e.Values[0].Text
		v, err := decodeValue(e.Values[1])
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", key, err)
		}
		result[key] = v
	}

	return result, nil
}

func element(name, text string) xmlValue {
	return xmlValue{XMLName: xml.Name{Local: name}, Text: text}
}

func encodeValue(v any) (xmlValue, error) {
	switch t := v.(type) {
	case nil:
		return xmlValue{}, ErrNilMapValue
	case bool:
		return element(elemBoolean, strconv.FormatBool(t)), nil
	case uint8:
		return element(elemByte, strconv.FormatUint(uint64(t), 10)), nil
	case int16:
		return element(elemShort, strconv.FormatInt(int64(t), 10)), nil
	case int32:
		return element(elemInt, strconv.FormatInt(int64(t), 10)), nil
	case int:
		if t >= math.MinInt32 && t <= math.MaxInt32 {
			return element(elemInt, strconv.Itoa(t)), nil
		}
		return element(elemLong, strconv.Itoa(t)), nil
	case int64:
		return element(elemLong, strconv.FormatInt(t, 10)), nil
	case float32:
		return element(elemFloat, strconv.FormatFloat(float64(t), 'g', -1, 32)), nil
	case float64:
		return element(elemDouble, strconv.FormatFloat(t, 'g', -1, 64)), nil
	case []byte:
		return element(elemByteArray, base64.StdEncoding.EncodeToString(t)), nil
	case string:
		return element(elemString, t), nil
	case map[string]any, []any:
		return xmlValue{}, ErrNestedMapValue
	default:
		return xmlValue{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func decodeValue(v xmlValue) (any, error) {
	text := v.Text
	switch v.XMLName.Local {
	case elemBoolean:
		return strconv.ParseBool(text)
	case elemByte:
		n, err := strconv.ParseUint(text, 10, 8)
		return uint8(n), err
	case elemShort:
		n, err := strconv.ParseInt(text, 10, 16)
		return int16(n), err
	case elemInt:
		n, err := strconv.ParseInt(text, 10, 32)
		return int32(n), err
	case elemLong:
		return strconv.ParseInt(text, 10, 64)
	case elemFloat:
		n, err := strconv.ParseFloat(text, 32)
		return float32(n), err
	case elemDouble:
		return strconv.ParseFloat(text, 64)
	case elemByteArray:
		return base64.StdEncoding.DecodeString(text)
	case elemString, elemChar:
		return text, nil
	default:
		return nil, fmt.Errorf("%w: element %q", ErrUnsupportedValue, v.XMLName.Local)
	}
}
