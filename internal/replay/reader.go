package replay

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"time"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/gamestate"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
)

// KeyframeInterval is how often, in frames, the reader keeps a copy of the
// room to seek from.
const KeyframeInterval = 600

// maxBody caps the decompressed size of a replay.
const maxBody = 64 << 20

type keyframe struct {
	frame uint32
	next  int
	state *room.State
}

// Reader plays a replay file back through the same room handlers the host
// used. Frame counts from 0 at the snapshot.
type Reader struct {
	length  uint32
	records []protocol.Record
	cb      callbacks.Callbacks

	state *room.State
	frame uint32
	next  int

	keyframes []keyframe
	speed     float64
	carry     float64
	ended     bool

	onEnd         func()
	onDestination func(frame uint32)
}

// Info is what the header and body say about a replay without playing it.
type Info struct {
	Version uint32
	Frames  uint32
	Records int
}

func readHeader(data []byte) (uint32, error) {
	r := codec.NewReader(data)
	magic, err := r.ReadBytes(len(Magic))
	if err != nil || string(magic) != Magic {
		return 0, errcode.New(errcode.ReplayFileReadError)
	}
	version, err := r.ReadUint32()
	if err != nil {
		return 0, errcode.New(errcode.ReplayFileReadError)
	}
	if version != Version {
		return 0, errcode.New(errcode.ReplayFileVersionMismatchError, version)
	}
	frames, err := r.ReadUint32()
	if err != nil {
		return 0, errcode.New(errcode.ReplayFileReadError)
	}
	return frames, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %w", errcode.New(errcode.ReplayFileReadError), err)
}

func decode(data []byte) (uint32, *room.State, []protocol.Record, error) {
	frames, err := readHeader(data)
	if err != nil {
		return 0, nil, nil, err
	}
	fr := flate.NewReader(bytes.NewReader(data[headerSize:]))
	defer fr.Close()
	plain, err := io.ReadAll(io.LimitReader(fr, maxBody))
	if err != nil {
		return 0, nil, nil, corrupt(err)
	}

	r := codec.NewReader(plain)
	snapshot, err := r.ReadBlob()
	if err != nil {
		return 0, nil, nil, corrupt(err)
	}
	state, err := room.Read(codec.NewReader(snapshot))
	if err != nil {
		return 0, nil, nil, corrupt(err)
	}
	count, err := r.ReadVarUint()
	if err != nil {
		return 0, nil, nil, corrupt(err)
	}
	if int(count) > r.Remaining() {
		return 0, nil, nil, errcode.New(errcode.ReplayFileReadError)
	}

	records := make([]protocol.Record, 0, count)
	frame := uint32(0)
	for i := 0; i < int(count); i++ {
		delta, err := r.ReadVarUint()
		if err != nil {
			return 0, nil, nil, corrupt(err)
		}
		rec, err := readTail(r)
		if err != nil {
			return 0, nil, nil, corrupt(err)
		}
		frame += delta
		rec.Frame = frame
		records = append(records, rec)
	}
	if frame > frames {
		return 0, nil, nil, errcode.New(errcode.ReplayFileReadError)
	}
	return frames, state, records, nil
}

func readTail(r *codec.Reader) (protocol.Record, error) {
	var rec protocol.Record
	sender, err := r.ReadVarUint()
	if err != nil {
		return rec, err
	}
	rec.SenderID = int(sender)
	rec.Op, err = protocol.ReadOperation(r)
	return rec, err
}

// Inspect decodes a replay and reports its size without playing it.
func Inspect(data []byte) (Info, error) {
	frames, _, records, err := decode(data)
	if err != nil {
		return Info{}, err
	}
	return Info{Version: Version, Frames: frames, Records: len(records)}, nil
}

// Open decodes a replay. Playback starts paused at frame 0.
func Open(data []byte, cb callbacks.Callbacks) (*Reader, error) {
	frames, state, records, err := decode(data)
	if err != nil {
		return nil, err
	}
	if cb == nil {
		cb = &callbacks.DefaultCallbacks{}
	}
	r := &Reader{
		length:  frames,
		records: records,
		cb:      cb,
		state:   state,
	}
	r.keyframes = []keyframe{{frame: 0, next: 0, state: state.Copy()}}
	return r, nil
}

func (r *Reader) Length() uint32 { return r.length }
func (r *Reader) Frame() uint32  { return r.frame }

// State returns the room at the current frame.
func (r *Reader) State() *room.State { return r.state }

// Time returns the playback position.
func (r *Reader) Time() time.Duration {
	return time.Duration(r.frame) * time.Second / gamestate.TicksPerSecond
}

// SetSpeed sets the playback rate: 0 pauses, 1 is real time.
func (r *Reader) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	r.speed = speed
}

func (r *Reader) Speed() float64 { return r.speed }

// OnEnd registers fn to run once playback reaches the last frame.
func (r *Reader) OnEnd(fn func()) { r.onEnd = fn }

// OnDestinationTimeReached registers fn to run when a SetTime seek lands.
func (r *Reader) OnDestinationTimeReached(fn func(frame uint32)) { r.onDestination = fn }

// Advance plays elapsed wall time at the current speed and returns how many
// frames were stepped.
func (r *Reader) Advance(elapsed time.Duration) int {
	r.carry += elapsed.Seconds() * gamestate.TicksPerSecond * r.speed
	n := 0
	for r.carry >= 1 && !r.ended {
		r.carry--
		r.step(r.cb)
		n++
	}
	if r.ended {
		r.carry = 0
	}
	return n
}

// Step plays exactly one frame. It reports false at the end of the replay.
func (r *Reader) Step() bool {
	if r.ended {
		return false
	}
	r.step(r.cb)
	return !r.ended
}

func (r *Reader) step(cb callbacks.Callbacks) {
	if r.frame >= r.length {
		r.finish()
		return
	}
	for r.next < len(r.records) && r.records[r.next].Frame == r.frame {
		rec := r.records[r.next]
		// The host only relayed operations it had applied.
		_ = r.state.Apply(rec.Op, rec.SenderID, cb)
		r.next++
	}
	r.state.Tick(cb)
	r.frame++

	if r.frame%KeyframeInterval == 0 && r.keyframes[len(r.keyframes)-1].frame < r.frame {
		r.keyframes = append(r.keyframes, keyframe{frame: r.frame, next: r.next, state: r.state.Copy()})
	}
	if r.frame >= r.length {
		r.finish()
	}
}

func (r *Reader) finish() {
	if r.ended {
		return
	}
	r.ended = true
	if r.onEnd != nil {
		r.onEnd()
	}
}

// SetTime moves playback to frame. Going back restarts from the last
// keyframe at or before frame and plays forward from there; the skipped
// frames fire no callbacks.
func (r *Reader) SetTime(frame uint32) {
	if frame > r.length {
		frame = r.length
	}
	if frame < r.frame {
		k := r.keyframes[0]
		for _, kf := range r.keyframes {
			if kf.frame <= frame {
				k = kf
			}
		}
		r.state = k.state.Copy()
		r.frame = k.frame
		r.next = k.next
		r.ended = false
	}
	quiet := &callbacks.DefaultCallbacks{}
	for r.frame < frame && !r.ended {
		r.step(quiet)
	}
	r.carry = 0
	if r.onDestination != nil {
		r.onDestination(r.frame)
	}
}
