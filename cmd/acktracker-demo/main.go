// Command acktracker-demo drives one of the four ack-tracker variants
// against a synthetic message stream described by a YAML scenario
// file. Tracked messages are published onto a Watermill in-memory
// pub/sub standing in for "the downstream pipeline" (acktracker.go's
// core is deliberately blind to how or where a message gets
// processed); a subscriber goroutine plays that downstream consumer,
// acking the tracker only once it has "processed" (received) each
// message. A summary table is printed once every message has cycled
// through request_bookmark -> track -> publish -> subscribe -> ack.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ehrlich-b/acktracker"
	"github.com/ehrlich-b/acktracker/internal/logging"
)

const messagesTopic = "acktracker.messages"

// demoMessage is the minimal acktracker.Message a real pipeline message
// type would embed.
type demoMessage struct {
	index  int
	handle acktracker.AckHandle
}

func (m *demoMessage) SetAckHandle(h acktracker.AckHandle)     { m.handle = h }
func (m *demoMessage) AckHandle() (acktracker.AckHandle, bool) { return m.handle, m.handle != nil }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		scenarioPath string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "acktracker-demo",
		Short: "Drive an ack-tracker variant against a scripted scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(scenarioPath, verbose)
		},
	}
	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "path to a scenario YAML file (required)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

func runScenario(path string, verbose bool) error {
	sc, err := loadScenario(path)
	if err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	if verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	defer logger.Sync()

	metrics := acktracker.NewMetrics("acktracker_demo")

	var source *acktracker.MockSource
	if sc.Dynamic {
		source = acktracker.NewMockDynamicSource()
	} else {
		window := sc.WindowSize
		if window == 0 {
			window = uint32(sc.MessageCount)
		}
		source = acktracker.NewMockSource(window)
	}

	var (
		summaryMu  sync.Mutex
		saves      []int
		batchSizes []int
		ackedByType = map[string]int{}
	)

	tr, err := buildTracker(sc, source, logger, metrics, func(records []*acktracker.Bookmark) {
		summaryMu.Lock()
		batchSizes = append(batchSizes, len(records))
		summaryMu.Unlock()
	})
	if err != nil {
		return err
	}
	if !tr.Init() {
		return fmt.Errorf("tracker failed to initialize")
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(verbose, false))
	defer pubsub.Close()

	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	incoming, err := pubsub.Subscribe(subCtx, messagesTopic)
	if err != nil {
		return fmt.Errorf("subscribe to messages topic: %w", err)
	}

	messages := make([]*demoMessage, sc.MessageCount)
	ackTypeByIndex := make(map[int]acktracker.AckType, len(sc.AckPlan))
	for _, step := range sc.AckPlan {
		ackTypeByIndex[step.Message] = parseAckType(step.Type)
	}

	// Messages enter the tracker in source order...
	tracked := 0
	for i := 0; i < sc.MessageCount; i++ {
		bm, ok := tr.RequestBookmark()
		if !ok {
			logger.Warn("demo: flow-control window exhausted, stopping early", "at_message", i)
			break
		}
		bm.Payload[0] = uint64(i)
		bm.SetSave(func(b *acktracker.Bookmark) {
			summaryMu.Lock()
			saves = append(saves, int(b.Payload[0]))
			summaryMu.Unlock()
		})

		messages[i] = &demoMessage{index: i}
		tr.Track(messages[i])
		tracked++
	}

	expected := 0
	for _, step := range sc.AckPlan {
		if step.Message < tracked {
			expected++
		}
	}

	// The downstream consumer: for every message this pipeline stand-in
	// receives, it acks the tracker with whatever disposition the
	// scenario assigned that message's index, then acknowledges the
	// envelope back to Watermill.
	var consumerWG sync.WaitGroup
	consumerWG.Add(1)
	go func() {
		defer consumerWG.Done()
		processed := 0
		for envelope := range incoming {
			idx := decodeIndex(envelope.Payload)
			m := messages[idx]
			ackType, ok := ackTypeByIndex[idx]
			if !ok {
				ackType = acktracker.AckProcessed
			}
			tr.Ack(m, ackType)

			summaryMu.Lock()
			ackedByType[ackType.String()]++
			summaryMu.Unlock()

			envelope.Ack()
			processed++
			if processed == expected {
				return
			}
		}
	}()

	// ...but the downstream pipeline stand-in "finishes" them in
	// whatever order the scenario's ack plan dictates, which is the
	// mechanism the demo uses to exercise out-of-order acking.
	for _, step := range sc.AckPlan {
		if step.Message >= tracked {
			continue
		}
		envelope := message.NewMessage(watermill.NewUUID(), encodeIndex(step.Message))
		if err := pubsub.Publish(messagesTopic, envelope); err != nil {
			logger.Warn("demo: failed to publish message", "index", step.Message, "err", err)
		}
	}

	if expected == 0 {
		cancelSub()
	}

	consumerWG.Wait()
	cancelSub()

	tr.Deinit()
	tr.Free()

	summaryMu.Lock()
	defer summaryMu.Unlock()
	renderSummary(sc, source, saves, batchSizes, ackedByType, metrics)
	return nil
}

func buildTracker(sc *scenario, source *acktracker.MockSource, logger *logging.Logger, observer acktracker.Observer, onBatch func([]*acktracker.Bookmark)) (acktracker.Tracker, error) {
	switch sc.Variant {
	case "instant":
		return acktracker.NewInstant(source, logger, observer), nil
	case "bookmarkless":
		return acktracker.NewBookmarklessInstant(source, observer), nil
	case "consecutive":
		return acktracker.NewConsecutive(source, acktracker.ConsecutiveConfig{
			WindowSize: sc.WindowSize,
			Dynamic:    sc.Dynamic,
		}, logger, observer), nil
	case "batched":
		return acktracker.NewBatched(source, acktracker.BatchedConfig{
			BatchSize: sc.BatchSize,
			Timeout:   sc.Timeout,
			OnBatch:   onBatch,
		}, logger, observer), nil
	default:
		return nil, fmt.Errorf("unknown variant %q (want instant, bookmarkless, consecutive, or batched)", sc.Variant)
	}
}

// encodeIndex/decodeIndex carry a message's source-order index across
// the pub/sub boundary as a small decimal payload; the demo has no
// real message body to transport.
func encodeIndex(i int) []byte { return []byte(fmt.Sprintf("%d", i)) }

func decodeIndex(payload []byte) int {
	var i int
	fmt.Sscanf(string(payload), "%d", &i)
	return i
}

func renderSummary(sc *scenario, source *acktracker.MockSource, saves, batchSizes []int, ackedByType map[string]int, metrics *acktracker.Metrics) {
	fmt.Printf("scenario: variant=%s messages=%s\n", sc.Variant, humanize.Comma(int64(sc.MessageCount)))

	t := table.NewWriter()
	t.AppendHeader(table.Row{"metric", "value"})
	for ackType, n := range ackedByType {
		t.AppendRow(table.Row{"acked (" + ackType + ")", humanize.Comma(int64(n))})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"bookmarks saved", humanize.Comma(int64(len(saves)))})
	t.AppendRow(table.Row{"batches flushed", humanize.Comma(int64(len(batchSizes)))})
	t.AppendRow(table.Row{"flow-control credits returned", humanize.Comma(int64(source.TotalCredits()))})
	t.AppendRow(table.Row{"outstanding source references", source.Refs()})
	fmt.Println(t.Render())

	gathered, err := metrics.Registry().Gather()
	if err == nil {
		fmt.Printf("prometheus families collected: %d\n", len(gathered))
	}
}
