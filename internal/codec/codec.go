// Package codec provides the wire encodings used by the RPC transport.
//
// JSON is the default. Msgpack is a compact binary alternative; a server always
// answers in the codec the request arrived in.
package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes and decodes request and response bodies.
type Codec interface {
	Name() string
	ContentType() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string        { return "msgpack" }
func (msgpackCodec) ContentType() string { return "application/msgpack" }

func (msgpackCodec) Encode(w io.Writer, v any) error {
	return msgpack.NewEncoder(w).Encode(v)
}

func (msgpackCodec) Decode(r io.Reader, v any) error {
	return msgpack.NewDecoder(r).Decode(v)
}

var (
	// JSON is the default codec.
	JSON Codec = jsonCodec{}
	// Msgpack encodes bodies as MessagePack.
	Msgpack Codec = msgpackCodec{}
)

var all = []Codec{JSON, Msgpack}

// Lookup returns the codec registered under name. An empty name selects JSON.
func Lookup(name string) (Codec, error) {
	if name == "" {
		return JSON, nil
	}
	for _, c := range all {
		if strings.EqualFold(c.Name(), name) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// ForContentType picks the codec matching a Content-Type header value.
// Unknown or missing content types fall back to JSON.
func ForContentType(contentType string) Codec {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return JSON
	}
	for _, c := range all {
		if c.ContentType() == mt {
			return c
		}
	}
	return JSON
}
