package replay

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
)

const (
	Magic   = "HBR2"
	Version = 3

	headerSize = 12
)

var ErrStopped = errors.New("recorder already stopped")

// Recorder captures a room from a snapshot onwards. Feed it every record
// the host relays, then Stop it to get the file.
type Recorder struct {
	start     uint32
	lastFrame uint32
	snapshot  []byte
	body      *codec.Writer
	count     int
	stopped   bool
}

// NewRecorder snapshots state, which must be the room at frame as it stands
// between two ticks.
func NewRecorder(frame uint32, state *room.State) *Recorder {
	w := codec.NewWriter(4096)
	state.Write(w)
	return &Recorder{
		start:     frame,
		lastFrame: frame,
		snapshot:  w.Bytes(),
		body:      codec.NewWriter(8192),
	}
}

// Record appends one relayed operation. Records must come in host order.
func (r *Recorder) Record(rec protocol.Record) error {
	if r.stopped {
		return ErrStopped
	}
	if rec.Frame < r.lastFrame {
		return fmt.Errorf("record for frame %d after frame %d", rec.Frame, r.lastFrame)
	}
	r.body.WriteVarUint(rec.Frame - r.lastFrame)
	r.body.WriteVarUint(uint32(rec.SenderID))
	protocol.WriteOperation(r.body, rec.Op)
	r.lastFrame = rec.Frame
	r.count++
	return nil
}

func (r *Recorder) Count() int {
	return r.count
}

// Stop ends the recording at frame and returns the replay file.
func (r *Recorder) Stop(frame uint32) ([]byte, error) {
	if r.stopped {
		return nil, ErrStopped
	}
	if frame < r.lastFrame {
		frame = r.lastFrame
	}
	r.stopped = true

	plain := codec.NewWriter(len(r.snapshot) + r.body.Len() + 16)
	plain.WriteBlob(r.snapshot)
	plain.WriteVarUint(uint32(r.count))
	plain.WriteBytes(r.body.Bytes())

	header := codec.NewWriter(headerSize)
	header.WriteStringBytes(Magic)
	header.WriteUint32(Version)
	header.WriteUint32(frame - r.start)

	var out bytes.Buffer
	out.Write(header.Bytes())
	fw, err := flate.NewWriter(&out, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	if _, err := fw.Write(plain.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to compress replay: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress replay: %w", err)
	}
	return out.Bytes(), nil
}
