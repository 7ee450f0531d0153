package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Codec encodes an Envelope for a FileBackend.
type Codec interface {
	// Name identifies the codec in logs and errors.
	Name() string
	Marshal(env Envelope) ([]byte, error)
	Unmarshal(data []byte, env *Envelope) error
}

// JSONCodec writes indented JSON.
//
// On read it also accepts the legacy layout: a bare JSON array of
// {id, studentName, examName, duration, timeLeft, isRunning} objects where
// duration is in minutes (number or numeric string) and timeLeft in seconds.
type JSONCodec struct{}

// Name returns "json".
func (JSONCodec) Name() string { return "json" }

// Marshal encodes env as indented JSON.
func (JSONCodec) Marshal(env Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

// Unmarshal decodes either an Envelope or a legacy array into env.
func (JSONCodec) Unmarshal(data []byte, env *Envelope) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return unmarshalLegacy(trimmed, env)
	}
	return json.Unmarshal(trimmed, env)
}

type legacyRecord struct {
	ID          json.RawMessage `json:"id"`
	StudentName string          `json:"studentName"`
	ExamName    string          `json:"examName"`
	Duration    json.RawMessage `json:"duration"`
	TimeLeft    int             `json:"timeLeft"`
	IsRunning   bool            `json:"isRunning"`
}

func unmarshalLegacy(data []byte, env *Envelope) error {
	var legacy []legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("legacy layout: %w", err)
	}

	*env = Envelope{Version: 0, Slot: DefaultSlot, Timers: make([]Record, 0, len(legacy))}
	for i, l := range legacy {
		minutes, err := legacyNumber(l.Duration)
		if err != nil {
			return fmt.Errorf("legacy layout: record %d: duration: %w", i, err)
		}
		r := Record{
			ID:               legacyID(l.ID),
			StudentName:      l.StudentName,
			ExamName:         l.ExamName,
			DurationSeconds:  int(math.Round(minutes * 60)),
			RemainingSeconds: l.TimeLeft,
			IsRunning:        l.IsRunning,
		}
		if r.RemainingSeconds == 0 {
			// Saved between reaching zero and stopping: the end alarm was due.
			r.IsRunning = false
			r.WarnedEnd = true
		}
		env.Timers = append(env.Timers, r)
	}
	return nil
}

// legacyNumber accepts 45, 45.5 or "45".
func legacyNumber(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func legacyID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// cborEncMode and cborDecMode are shared by every CBORCodec.
var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error

	// Canonical key order keeps identical collections byte-identical on disk.
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	cborEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	cborDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR decoder mode: %v", err))
	}
}

// CBORCodec writes compact CBOR with integer keys.
type CBORCodec struct{}

// Name returns "cbor".
func (CBORCodec) Name() string { return "cbor" }

// Marshal encodes env as canonical CBOR.
func (CBORCodec) Marshal(env Envelope) ([]byte, error) {
	return cborEncMode.Marshal(env)
}

// Unmarshal decodes CBOR into env.
func (CBORCodec) Unmarshal(data []byte, env *Envelope) error {
	return cborDecMode.Unmarshal(data, env)
}

// CodecFor returns the codec registered under name ("json" or "cbor").
func CodecFor(name string) (Codec, error) {
	switch name {
	case "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
