package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ehrlich-b/acktracker"
)

// scenario describes a single run of one tracker variant driven against
// a synthetic message stream: the demo's stand-in for a real log
// source and real downstream pipeline, parameterized entirely from a
// YAML file rather than flags, since a scenario has more shape
// (variant, window, ack plan) than fits comfortably on a command line.
type scenario struct {
	Variant      string `yaml:"variant"`
	MessageCount int    `yaml:"message_count"`
	WindowSize   uint32 `yaml:"window_size"`
	Dynamic      bool   `yaml:"dynamic"`
	BatchSize    int    `yaml:"batch_size"`
	// TimeoutRaw is a Go duration string (e.g. "20ms"); yaml.v3 has no
	// built-in time.Duration codec, so it is parsed into Timeout below.
	TimeoutRaw string `yaml:"timeout"`
	Timeout    time.Duration

	// AckPlan maps message index to an ack type name
	// ("processed"/"suspended"/"aborted"). Messages not listed default
	// to "processed" and are acked after the listed ones. Acks are
	// applied in AckPlan's list order, which
	// may differ from message index order — the mechanism the demo uses
	// to exercise out-of-order acking for the Consecutive variant.
	AckPlan []ackStep `yaml:"ack_plan"`
}

type ackStep struct {
	Message int    `yaml:"message"`
	Type    string `yaml:"type"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var s scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario yaml: %w", err)
	}
	if s.MessageCount <= 0 {
		s.MessageCount = 8
	}
	if s.BatchSize <= 0 {
		s.BatchSize = acktracker.DefaultBatchSize
	}
	if s.TimeoutRaw != "" {
		d, err := time.ParseDuration(s.TimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("parse timeout %q: %w", s.TimeoutRaw, err)
		}
		s.Timeout = d
	} else {
		s.Timeout = acktracker.DefaultBatchTimeout
	}
	listed := make(map[int]bool, len(s.AckPlan))
	for _, step := range s.AckPlan {
		listed[step.Message] = true
	}
	for i := 0; i < s.MessageCount; i++ {
		if !listed[i] {
			s.AckPlan = append(s.AckPlan, ackStep{Message: i, Type: "processed"})
		}
	}
	return &s, nil
}

func parseAckType(name string) acktracker.AckType {
	switch name {
	case "suspended":
		return acktracker.AckSuspended
	case "aborted":
		return acktracker.AckAborted
	default:
		return acktracker.AckProcessed
	}
}
