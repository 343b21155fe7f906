// Package runtime is the host side of the execute-resume contract: it
// drives a proofer context's pending requests over the configured node
// pools until the context reaches a terminal status.
package runtime

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/corpus-core/colibri/nodepool"
	"github.com/corpus-core/colibri/proofer"
	"github.com/corpus-core/colibri/rpcreq"
)

var log = logrus.WithField("prefix", "runtime")

// InternalHandler serves Kind=Internal requests from in-process sources
// (the period store).
type InternalHandler func(ctx context.Context, url string) ([]byte, error)

// Driver owns the HTTP clients and node pools serving data requests.
type Driver struct {
	pools    *nodepool.Set
	http     *http.Client
	internal InternalHandler
}

// NewDriver builds a driver over the configured pools.
func NewDriver(pools *nodepool.Set, timeout time.Duration, internal InternalHandler) *Driver {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Driver{
		pools:    pools,
		http:     &http.Client{Timeout: timeout},
		internal: internal,
	}
}

// Run drives the execute-resume loop to a terminal status. Requests of
// one round are issued concurrently; responses land in any order.
func (d *Driver) Run(ctx context.Context, pc *proofer.Context) ([]byte, error) {
	for {
		switch proofer.Execute(pc) {
		case proofer.StatusSuccess:
			return pc.Proof, nil
		case proofer.StatusError:
			return nil, errors.New(pc.State.Error())
		}
		pending := pc.State.Pending()
		if len(pending) == 0 {
			return nil, errors.New("pending status without pending requests")
		}
		var wg sync.WaitGroup
		for _, req := range pending {
			wg.Add(1)
			go func(r *rpcreq.Request) {
				defer wg.Done()
				d.serve(ctx, r)
			}(req)
		}
		wg.Wait()
	}
}

// serve completes one request: node selection by exclude mask and client
// preference, issue, classify, retry until the pool is exhausted.
func (d *Driver) serve(ctx context.Context, req *rpcreq.Request) {
	if req.Kind == rpcreq.Internal {
		if d.internal == nil {
			req.Error = "no internal data source configured"
			return
		}
		body, err := d.internal(ctx, req.URL)
		if err != nil {
			req.Error = err.Error()
			return
		}
		req.Response = body
		return
	}

	pool := d.pools.Pool(req.Kind)
	if pool == nil {
		req.Error = "no nodes configured for " + req.Kind.String()
		return
	}
	for {
		idx, node, err := pool.Pick(req.NodeExcludeMask, req.PreferredClientType)
		if err != nil {
			if req.Error == "" {
				req.Error = "all nodes failed for " + req.URL
			}
			log.WithFields(logrus.Fields{"kind": req.Kind.String(), "url": req.URL}).
				Warn("Upstream pool exhausted")
			return
		}
		requestsIssued.WithLabelValues(req.Kind.String()).Inc()
		status, body, err := d.issue(ctx, node.URL, req)
		if err != nil {
			requestsFailed.WithLabelValues(req.Kind.String()).Inc()
			req.NodeExcludeMask |= 1 << uint(idx)
			req.Error = err.Error()
			continue
		}
		switch rpcreq.Classify(status, req.URL, body, req.Kind) {
		case rpcreq.Success:
			req.Response = body
			req.ResponseNodeIndex = idx
			req.Error = ""
			return
		case rpcreq.ErrorRetry:
			requestsRetried.WithLabelValues(req.Kind.String()).Inc()
			req.NodeExcludeMask |= 1 << uint(idx)
			req.Error = errors.Errorf("status %d from %s", status, node.URL).Error()
		case rpcreq.ErrorMethodNotSupported:
			req.Error = "method not supported by upstream"
			return
		default:
			req.Error = errors.Errorf("upstream rejected request: status %d", status).Error()
			return
		}
	}
}

func (d *Driver) issue(ctx context.Context, base string, req *rpcreq.Request) (int, []byte, error) {
	var body io.Reader
	if len(req.Payload) > 0 {
		body = bytes.NewReader(req.Payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), base+req.URL, body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "build request")
	}
	if req.Encoding == rpcreq.EncodingSSZ {
		httpReq.Header.Set("Accept", "application/octet-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	if len(req.Payload) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	res, err := d.http.Do(httpReq)
	if err != nil {
		return 0, nil, errors.Wrap(err, "upstream request")
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "read upstream response")
	}
	return res.StatusCode, raw, nil
}
