package proto

import (
	"bytes"
	"testing"

	kperrors "kickpass/errors"
)

func TestStorePayloadRoundTrip(t *testing.T) {
	p := &StorePayload{
		Timeout:  30,
		Name:     "a/b/c",
		Password: []byte("hunter2"),
		Metadata: []byte("url: x\n"),
	}

	buf, err := EncodeStorePayload(p)
	if err != nil {
		t.Fatalf("EncodeStorePayload() error = %v", err)
	}
	if len(buf) != storePayloadSize {
		t.Fatalf("len(buf) = %d, want %d", len(buf), storePayloadSize)
	}

	got, err := DecodeStorePayload(buf)
	if err != nil {
		t.Fatalf("DecodeStorePayload() error = %v", err)
	}
	if got.Timeout != p.Timeout || got.Name != p.Name ||
		!bytes.Equal(got.Password, p.Password) || !bytes.Equal(got.Metadata, p.Metadata) {
		t.Errorf("DecodeStorePayload() = %+v, want %+v", got, p)
	}
}

func TestSearchDiscardPayloadRoundTrip(t *testing.T) {
	buf, err := EncodeSearchPayload("a/b")
	if err != nil {
		t.Fatalf("EncodeSearchPayload() error = %v", err)
	}
	name, err := DecodeSearchPayload(buf)
	if err != nil {
		t.Fatalf("DecodeSearchPayload() error = %v", err)
	}
	if name != "a/b" {
		t.Errorf("DecodeSearchPayload() = %q, want %q", name, "a/b")
	}

	buf, err = EncodeDiscardPayload("a/b")
	if err != nil {
		t.Fatalf("EncodeDiscardPayload() error = %v", err)
	}
	name, err = DecodeDiscardPayload(buf)
	if err != nil {
		t.Fatalf("DecodeDiscardPayload() error = %v", err)
	}
	if name != "a/b" {
		t.Errorf("DecodeDiscardPayload() = %q, want %q", name, "a/b")
	}
}

func TestDiscardReplyRoundTrip(t *testing.T) {
	for _, want := range []bool{true, false} {
		buf := EncodeDiscardReply(want)
		got, err := DecodeDiscardReply(buf)
		if err != nil {
			t.Fatalf("DecodeDiscardReply() error = %v", err)
		}
		if got != want {
			t.Errorf("DecodeDiscardReply() = %v, want %v", got, want)
		}
	}
}

func TestErrorPayloadRoundTrip(t *testing.T) {
	p := &ErrorPayload{Kind: kperrors.Errno, Errno: 2}
	buf := EncodeErrorPayload(p)
	got, err := DecodeErrorPayload(buf)
	if err != nil {
		t.Fatalf("DecodeErrorPayload() error = %v", err)
	}
	if *got != *p {
		t.Errorf("DecodeErrorPayload() = %+v, want %+v", got, p)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload, err := EncodeSearchPayload("a/b/c")
	if err != nil {
		t.Fatalf("EncodeSearchPayload() error = %v", err)
	}

	if err := WriteFrame(&buf, Search, 7, 42, payload); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	frame, err := ReadFrame(&buf, false)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if frame.Type != Search || frame.ID != 7 || frame.Peer != 42 {
		t.Errorf("ReadFrame() header = %+v, want Type=Search ID=7 Peer=42", frame)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Errorf("ReadFrame() payload mismatch")
	}
}

func TestReadFrame_PayloadSizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Search, 1, 1, []byte("short")); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	_, err := ReadFrame(&buf, false)
	if !kperrors.Is(err, kperrors.ErrPayloadSize) {
		t.Errorf("ReadFrame() error = %v, want ErrPayloadSize", err)
	}
}

func TestGetNulBytes_MissingTerminator(t *testing.T) {
	field := bytes.Repeat([]byte{'x'}, PathMax)
	_, err := getNulBytes(field)
	if !kperrors.IsKind(err, kperrors.InvalidMsg) {
		t.Errorf("getNulBytes() error = %v, want InvalidMsg", err)
	}
}

func TestEncodeStorePayload_NameTooLong(t *testing.T) {
	p := &StorePayload{Name: string(bytes.Repeat([]byte{'a'}, PathMax))}
	_, err := EncodeStorePayload(p)
	if !kperrors.IsKind(err, kperrors.EInput) {
		t.Errorf("EncodeStorePayload() error = %v, want EInput", err)
	}
}
