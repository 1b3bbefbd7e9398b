package wire_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/wire"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Frames(t *testing.T) {
	p := peer.New("127.0.0.1", 3000, "bill", "04ab")

	var buf bytes.Buffer
	if err := wire.Write(&buf, wire.KindIdentity, p); err != nil {
		t.Fatalf("\t%s\tShould be able to write a frame: %s", failed, err)
	}
	if err := wire.Write(&buf, wire.KindEmpty, nil); err != nil {
		t.Fatalf("\t%s\tShould be able to write an empty frame: %s", failed, err)
	}
	t.Logf("\t%s\tShould be able to write frames.", success)

	msg, err := wire.Read(&buf)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to read a frame: %s", failed, err)
	}

	if msg.Kind != wire.KindIdentity {
		t.Fatalf("\t%s\tShould get back the identity kind, got %s", failed, msg.Kind)
	}

	var got peer.Peer
	if err := msg.Decode(&got); err != nil {
		t.Fatalf("\t%s\tShould be able to decode the body: %s", failed, err)
	}

	if got != p {
		t.Logf("got: %v", got)
		t.Logf("exp: %v", p)
		t.Fatalf("\t%s\tShould get back the same peer.", failed)
	}
	t.Logf("\t%s\tShould get back the same peer.", success)

	msg, err = wire.Read(&buf)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to read the empty frame: %s", failed, err)
	}

	if msg.Kind != wire.KindEmpty || string(msg.Body) != "[]" {
		t.Fatalf("\t%s\tShould get back an empty list, got %s %s", failed, msg.Kind, msg.Body)
	}

	if _, err := wire.Read(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("\t%s\tShould get EOF once the frames are consumed, got %v", failed, err)
	}
	t.Logf("\t%s\tShould read every frame in order.", success)
}

func Test_FrameTooLarge(t *testing.T) {
	var header [5]byte
	header[0] = byte(wire.KindChain)
	binary.BigEndian.PutUint32(header[1:], wire.MaxFrameSize+1)

	if _, err := wire.Read(bytes.NewReader(header[:])); !errors.Is(err, wire.ErrFrameTooLarge) {
		t.Fatalf("Should reject a frame over the max size, got %v", err)
	}
}

func Test_FrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.Write(&buf, wire.KindTx, map[string]string{"id": "abc"}); err != nil {
		t.Fatalf("Should be able to write a frame: %s", err)
	}

	data := buf.Bytes()
	if _, err := wire.Read(bytes.NewReader(data[:len(data)-2])); err == nil {
		t.Fatalf("Should fail to read a truncated frame.")
	}

	msg := wire.Message{Kind: wire.KindTx}
	var v map[string]string
	if err := msg.Decode(&v); err == nil {
		t.Fatalf("Should fail to decode an empty body.")
	}
}
