// Package wire implements the framing used by nodes and the directory to
// exchange messages over a TCP connection. Each frame is one kind byte, a
// four byte big endian length and a JSON encoded body.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest body a frame is allowed to carry.
const MaxFrameSize = 16 * 1024 * 1024

// ErrFrameTooLarge is returned when a frame body is bigger than MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

// Kind identifies the type of value carried in a frame.
type Kind byte

// Set of kinds a frame can carry.
const (
	KindEmpty Kind = iota + 1
	KindIdentity
	KindTx
	KindMinedTx
	KindChain
	KindPeers
	KindRegister
	KindList
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindIdentity:
		return "identity"
	case KindTx:
		return "tx"
	case KindMinedTx:
		return "minedtx"
	case KindChain:
		return "chain"
	case KindPeers:
		return "peers"
	case KindRegister:
		return "register"
	case KindList:
		return "list"
	}

	return fmt.Sprintf("kind(%d)", byte(k))
}

// Message is a frame read off the wire.
type Message struct {
	Kind Kind
	Body json.RawMessage
}

// Decode unmarshals the body of the message into the value.
func (m Message) Decode(v any) error {
	if len(m.Body) == 0 {
		return fmt.Errorf("decode %s: empty body", m.Kind)
	}

	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Kind, err)
	}

	return nil
}

// =============================================================================

// Write encodes the value and writes it as a single frame. A nil value
// produces a frame with an empty JSON array as its body.
func Write(w io.Writer, kind Kind, v any) error {
	if v == nil {
		v = []struct{}{}
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}

	if len(body) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	frame := make([]byte, 5+len(body))
	frame[0] = byte(kind)
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(body)))
	copy(frame[5:], body)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}

	return nil
}

// Read reads the next frame from the reader.
func Read(r io.Reader) (Message, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}

	size := binary.BigEndian.Uint32(header[1:])
	if size > MaxFrameSize {
		return Message{}, ErrFrameTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("read body: %w", err)
	}

	msg := Message{
		Kind: Kind(header[0]),
		Body: body,
	}

	return msg, nil
}
