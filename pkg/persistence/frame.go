// Package persistence implements the editor's crash journal: executed
// commands appended as checksummed binary frames, replayable for diagnosis
// after a crash.
package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Frame layout: [Magic 1B][OpCode 1B][PayloadLen u32 LE][CRC32 u32 LE][Payload].
// The CRC covers the payload only.
const frameMagic byte = 0xA5

// frameHeaderSize is magic + opcode + length + crc.
const frameHeaderSize = 1 + 1 + 4 + 4

// maxFramePayload guards replay against garbage length fields.
const maxFramePayload = 16 << 20

// ErrCorruptFrame reports a frame whose checksum or header is invalid.
var ErrCorruptFrame = errors.New("corrupt journal frame")

// OpCode identifies the editor command a journal entry records.
type OpCode uint8

const (
	OpApplyTool OpCode = iota + 1
	OpMoveNodes
	OpDeleteNodes
	OpConnect
	OpDisconnect
	OpSetPriority
	OpSetDirection
	OpDeduplicate
	OpUndo
	OpRedo
	OpLoadCourse
	OpSaveCourse
)

// String implements fmt.Stringer for log output.
func (op OpCode) String() string {
	switch op {
	case OpApplyTool:
		return "apply-tool"
	case OpMoveNodes:
		return "move-nodes"
	case OpDeleteNodes:
		return "delete-nodes"
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	case OpSetPriority:
		return "set-priority"
	case OpSetDirection:
		return "set-direction"
	case OpDeduplicate:
		return "deduplicate"
	case OpUndo:
		return "undo"
	case OpRedo:
		return "redo"
	case OpLoadCourse:
		return "load-course"
	case OpSaveCourse:
		return "save-course"
	default:
		return fmt.Sprintf("opcode(%d)", uint8(op))
	}
}

// writeFrame appends one frame to w.
func writeFrame(w io.Writer, op OpCode, payload []byte) error {
	var hdr [frameHeaderSize]byte
	hdr[0] = frameMagic
	hdr[1] = byte(op)
	binary.LittleEndian.PutUint32(hdr[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[6:10], crc32.ChecksumIEEE(payload))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// readFrame reads the next frame. It returns io.EOF at a clean end of the
// stream and io.ErrUnexpectedEOF when the stream ends inside a frame, so
// callers can treat a truncated tail differently from corruption.
func readFrame(r io.Reader) (OpCode, []byte, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:1]); err != nil {
		return 0, nil, err
	}
	if hdr[0] != frameMagic {
		return 0, nil, fmt.Errorf("%w: bad magic 0x%02x", ErrCorruptFrame, hdr[0])
	}
	if _, err := io.ReadFull(r, hdr[1:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	length := binary.LittleEndian.Uint32(hdr[2:6])
	if length > maxFramePayload {
		return 0, nil, fmt.Errorf("%w: payload length %d", ErrCorruptFrame, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	if crc32.ChecksumIEEE(payload) != binary.LittleEndian.Uint32(hdr[6:10]) {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptFrame)
	}
	return OpCode(hdr[1]), payload, nil
}
