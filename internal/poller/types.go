// internal/poller/types.go
package poller

import (
	"fmt"
	"strconv"
	"time"
)

// Kind tells how a sample was produced.
type Kind uint8

const (
	KindMessage Kind = iota + 1 // ascii streaming message
	KindReading                 // modbus rtu reading
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindReading:
		return "reading"
	default:
		return "unknown"
	}
}

// Sample is one decoded Message or ModbusReading. Immutable once produced.
type Sample struct {
	Channel string
	Kind    Kind
	At      time.Time

	// Text is the decoded message, or the reading formatted at its precision.
	Text string

	// Value is valid when Numeric is true. Readings are always numeric;
	// messages are numeric when their text parses as a float.
	Value   float64
	Numeric bool
}

func (s Sample) String() string {
	return fmt.Sprintf("%s %s %q", s.Channel, s.Kind, s.Text)
}

// Batch is one production unit: a decoder batch of messages or a single
// reading. Samples are in decode order.
type Batch struct {
	Channel string
	Kind    Kind
	At      time.Time
	Samples []Sample
}

// Texts returns the sample texts in order.
func (b Batch) Texts() []string {
	out := make([]string, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = s.Text
	}
	return out
}

// Flatten concatenates batches into one ordered sample sequence.
func Flatten(batches []Batch) []Sample {
	n := 0
	for _, b := range batches {
		n += len(b.Samples)
	}
	if n == 0 {
		return nil
	}
	out := make([]Sample, 0, n)
	for _, b := range batches {
		out = append(out, b.Samples...)
	}
	return out
}

func messageBatch(channel string, at time.Time, texts []string) Batch {
	b := Batch{
		Channel: channel,
		Kind:    KindMessage,
		At:      at,
		Samples: make([]Sample, len(texts)),
	}
	for i, t := range texts {
		s := Sample{Channel: channel, Kind: KindMessage, At: at, Text: t}
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			s.Value = v
			s.Numeric = true
		}
		b.Samples[i] = s
	}
	return b
}

func readingBatch(channel string, at time.Time, v float64, precision int) Batch {
	return Batch{
		Channel: channel,
		Kind:    KindReading,
		At:      at,
		Samples: []Sample{{
			Channel: channel,
			Kind:    KindReading,
			At:      at,
			Text:    strconv.FormatFloat(v, 'f', precision, 64),
			Value:   v,
			Numeric: true,
		}},
	}
}
