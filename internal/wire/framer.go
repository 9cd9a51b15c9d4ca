// Package wire implements the length-prefixed, JSON-payload framing used
// by the gameplay TCP protocol. Each frame is a 4-byte big-endian length
// header followed by exactly that many UTF-8 JSON payload bytes.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxPayloadBytes is the default cap on a single frame's payload, large
// enough for any legal Battleship message but small enough to bound a
// single malicious-length-header allocation.
const MaxPayloadBytes = 64 * 1024

const headerSize = 4

// ErrEndOfStream is returned by Receive when the peer closed the
// connection cleanly between frames, and wrapped when the stream ends
// partway through a frame's payload.
var ErrEndOfStream = errors.New("wire: end of stream")

// Send marshals msg to JSON and writes it to conn as one length-prefixed
// frame.
func Send(w io.Writer, msg Envelope) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}
	if len(payload) > MaxPayloadBytes {
		return fmt.Errorf("payload of %d bytes exceeds max frame size %d", len(payload), MaxPayloadBytes)
	}

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	return nil
}

// SendPooled behaves like Send but assembles header and payload in a
// buffer borrowed from pool and hands the frame to w as a single Write.
// One write per frame means a frame never goes out torn when the writer
// is under a deadline, and the pool absorbs the per-frame assembly
// allocation on the server's outbound hot path.
func SendPooled(w io.Writer, msg Envelope, pool *BytePool) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}
	if len(payload) > MaxPayloadBytes {
		return fmt.Errorf("payload of %d bytes exceeds max frame size %d", len(payload), MaxPayloadBytes)
	}

	frame := pool.Get(headerSize + len(payload))
	defer pool.Put(frame)

	binary.BigEndian.PutUint32(frame[:headerSize], uint32(len(payload)))
	copy(frame[headerSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Receive reads one length-prefixed frame from r and decodes its JSON
// payload into an Envelope. Returns ErrEndOfStream if the peer closed the
// connection before sending any part of a new frame's header.
func Receive(r io.Reader, maxPayload int) (Envelope, error) {
	if maxPayload <= 0 {
		maxPayload = MaxPayloadBytes
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Envelope{}, ErrEndOfStream
		}
		return Envelope{}, fmt.Errorf("reading frame header: %w", err)
	}

	payloadLen := int(binary.BigEndian.Uint32(header[:]))
	if payloadLen > maxPayload {
		return Envelope{}, fmt.Errorf("frame payload %d exceeds max %d", payloadLen, maxPayload)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Envelope{}, fmt.Errorf("%w: truncated frame payload", ErrEndOfStream)
		}
		return Envelope{}, fmt.Errorf("reading frame payload: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}

// ReceivePooled behaves like Receive but borrows its payload buffer from
// pool instead of allocating fresh each call. The buffer is returned to
// the pool before this function does; the Envelope does not retain a
// reference to it (json.Unmarshal copies string contents).
func ReceivePooled(r io.Reader, maxPayload int, pool *BytePool) (Envelope, error) {
	if maxPayload <= 0 {
		maxPayload = MaxPayloadBytes
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Envelope{}, ErrEndOfStream
		}
		return Envelope{}, fmt.Errorf("reading frame header: %w", err)
	}

	payloadLen := int(binary.BigEndian.Uint32(header[:]))
	if payloadLen > maxPayload {
		return Envelope{}, fmt.Errorf("frame payload %d exceeds max %d", payloadLen, maxPayload)
	}

	buf := pool.Get(payloadLen)
	defer pool.Put(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Envelope{}, fmt.Errorf("%w: truncated frame payload", ErrEndOfStream)
		}
		return Envelope{}, fmt.Errorf("reading frame payload: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}
