package beacon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/r3labs/sse"
	"github.com/sirupsen/logrus"

	"github.com/corpus-core/colibri/types"
)

var log = logrus.WithField("prefix", "beacon")

// HeadHandler receives every head event, resolved to the full header row
// the period store writes.
type HeadHandler func(slot uint64, root [32]byte, header [types.FlatHeaderLen]byte)

// FinalizedHandler receives finalized checkpoint events.
type FinalizedHandler func(epoch uint64, root [32]byte)

type headEvent struct {
	Slot  suint  `json:"slot"`
	Block string `json:"block"`
}

type finalizedEvent struct {
	Block string `json:"block"`
	Epoch suint  `json:"epoch"`
}

// Watcher subscribes to the beacon event stream and resolves head events
// into period store rows.
type Watcher struct {
	client    *Client
	streamURL string
	onHead    HeadHandler
	onFinal   FinalizedHandler
	stopped   atomic.Bool
}

// NewWatcher builds a watcher on the first beacon node's event stream.
func NewWatcher(client *Client, nodeURL string, onHead HeadHandler, onFinal FinalizedHandler) *Watcher {
	return &Watcher{
		client:    client,
		streamURL: nodeURL + "/eth/v1/events?topics=head,finalized_checkpoint",
		onHead:    onHead,
		onFinal:   onFinal,
	}
}

// Run consumes the stream until the context is cancelled, reconnecting
// with a flat backoff on stream errors.
func (w *Watcher) Run(ctx context.Context) {
	for !w.stopped.Load() {
		if err := w.subscribe(ctx); err != nil {
			log.WithError(err).Warn("Event stream disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// Stop ends the run loop after the current event.
func (w *Watcher) Stop() { w.stopped.Store(true) }

func (w *Watcher) subscribe(ctx context.Context) error {
	client := sse.NewClient(w.streamURL)
	events := make(chan *sse.Event, 16)
	if err := client.SubscribeChanRaw(events); err != nil {
		return err
	}
	defer client.Unsubscribe(events)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if w.stopped.Load() {
				return nil
			}
			w.dispatch(ctx, string(ev.Event), ev.Data)
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, topic string, data []byte) {
	switch topic {
	case "head":
		var ev headEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.WithError(err).Warn("Malformed head event")
			return
		}
		root, err := parseRoot(ev.Block)
		if err != nil {
			log.WithError(err).Warn("Malformed head event root")
			return
		}
		// The event carries no parent, so the row is completed from the
		// headers endpoint before it reaches the write queue.
		hdr, err := w.client.GetHeaderByRoot(ctx, root)
		if err != nil {
			log.WithError(err).WithField("slot", ev.Slot).Warn("Head header fetch failed")
			return
		}
		if w.onHead != nil {
			w.onHead(uint64(ev.Slot), root, hdr.Header.MarshalFlat())
		}
	case "finalized_checkpoint":
		var ev finalizedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.WithError(err).Warn("Malformed finalized event")
			return
		}
		root, err := parseRoot(ev.Block)
		if err != nil {
			log.WithError(err).Warn("Malformed finalized event root")
			return
		}
		if w.onFinal != nil {
			w.onFinal(uint64(ev.Epoch), root)
		}
	}
}
