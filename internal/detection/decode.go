package detection

import (
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// CommandClear asks the loitering session to drop the listed identities.
const CommandClear = "clear"

// Command is an operator control line interleaved with detector frames.
type Command struct {
	Name string
	IDs  []TrackID
}

// Frame is one decoded line of detector output.
//
//	{"frame":12,"timestamp":3.5,"boxes":[{"id":7,"cls":0,"conf":0.91,"xywh":[640,360,80,200]}]}
//
// "id" may be missing or null for boxes the tracker did not associate.
// "timestamp" is seconds on the caller's monotonic clock. A line carrying a
// "command" key decodes to a Frame with Command set and no boxes.
type Frame struct {
	Index        int64
	Timestamp    time.Duration
	HasTimestamp bool
	Boxes        []RawBox
	Command      *Command
}

// DecodeFrame parses one JSON line. Structural problems wrap
// ErrMalformedDetection.
func DecodeFrame(line []byte) (Frame, error) {
	if !gjson.ValidBytes(line) {
		return Frame{}, fmt.Errorf("%w: invalid JSON", ErrMalformedDetection)
	}
	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return Frame{}, fmt.Errorf("%w: frame is not an object", ErrMalformedDetection)
	}

	if cmd := doc.Get("command"); cmd.Exists() {
		return decodeCommand(cmd.String(), doc.Get("ids"))
	}

	var f Frame
	if idx := doc.Get("frame"); idx.Exists() {
		n, err := integer("frame index", idx)
		if err != nil {
			return Frame{}, err
		}
		f.Index = n
	}
	if ts := doc.Get("timestamp"); ts.Exists() {
		if ts.Type != gjson.Number {
			return Frame{}, fmt.Errorf("%w: timestamp is %s", ErrMalformedDetection, ts.Type)
		}
		f.Timestamp = time.Duration(ts.Float() * float64(time.Second))
		f.HasTimestamp = true
	}

	boxes := doc.Get("boxes")
	if !boxes.Exists() || boxes.Type == gjson.Null {
		return f, nil
	}
	if !boxes.IsArray() {
		return Frame{}, fmt.Errorf("%w: boxes is not an array", ErrMalformedDetection)
	}

	items := boxes.Array()
	f.Boxes = make([]RawBox, 0, len(items))
	for i, item := range items {
		box, err := decodeBox(item)
		if err != nil {
			return Frame{}, fmt.Errorf("box %d: %w", i, err)
		}
		f.Boxes = append(f.Boxes, box)
	}
	return f, nil
}

func decodeBox(item gjson.Result) (RawBox, error) {
	var box RawBox
	if !item.IsObject() {
		return box, fmt.Errorf("%w: box is not an object", ErrMalformedDetection)
	}

	if id := item.Get("id"); id.Exists() && id.Type != gjson.Null {
		n, err := integer("id", id)
		if err != nil {
			return box, err
		}
		box.ID = int(n)
		box.HasID = true
	}

	if cls := item.Get("cls"); cls.Exists() {
		n, err := integer("cls", cls)
		if err != nil {
			return box, err
		}
		box.Class = int(n)
	}

	conf := item.Get("conf")
	if conf.Type != gjson.Number {
		return box, fmt.Errorf("%w: missing conf", ErrMalformedDetection)
	}
	box.Confidence = conf.Float()

	xywh := item.Get("xywh").Array()
	if len(xywh) != 4 {
		return box, fmt.Errorf("%w: xywh needs 4 values, got %d", ErrMalformedDetection, len(xywh))
	}
	for i, v := range xywh {
		if v.Type != gjson.Number {
			return box, fmt.Errorf("%w: xywh[%d] is %s", ErrMalformedDetection, i, v.Type)
		}
		box.XYWH[i] = v.Float()
	}
	return box, nil
}

func decodeCommand(name string, ids gjson.Result) (Frame, error) {
	cmd := &Command{Name: name}
	if ids.Exists() && !ids.IsArray() {
		return Frame{}, fmt.Errorf("%w: command ids is not an array", ErrMalformedDetection)
	}
	for _, v := range ids.Array() {
		n, err := integer("command id", v)
		if err != nil {
			return Frame{}, err
		}
		cmd.IDs = append(cmd.IDs, TrackID(n))
	}
	return Frame{Command: cmd}, nil
}

// integer accepts whole JSON numbers that fit in an int32. Fractions are
// rejected rather than truncated.
func integer(field string, v gjson.Result) (int64, error) {
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is %s", ErrMalformedDetection, field, v.Type)
	}
	if v.Num != math.Trunc(v.Num) || v.Num < math.MinInt32 || v.Num > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s %s is not an integer", ErrMalformedDetection, field, v.Raw)
	}
	return int64(v.Num), nil
}
