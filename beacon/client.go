// Package beacon talks to the configured beacon API nodes: header and
// light client data fetching with node failover, and the SSE event stream
// feeding the period store head path.
package beacon

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/nodepool"
	"github.com/corpus-core/colibri/rpcreq"
	"github.com/corpus-core/colibri/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client fetches beacon API data with retry and node exclusion.
type Client struct {
	pool *nodepool.Pool
	http *http.Client
}

// NewClient wraps a node pool. The HTTP client carries the host timeout.
func NewClient(pool *nodepool.Pool, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{pool: pool, http: &http.Client{Timeout: timeout}}
}

// suint is a beacon API decimal-string encoded integer.
type suint uint64

func (s *suint) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid uint %q", raw)
	}
	*s = suint(v)
	return nil
}

type headerMessage struct {
	Slot          suint  `json:"slot"`
	ProposerIndex suint  `json:"proposer_index"`
	ParentRoot    string `json:"parent_root"`
	StateRoot     string `json:"state_root"`
	BodyRoot      string `json:"body_root"`
}

type headerResponse struct {
	Data struct {
		Root   string `json:"root"`
		Header struct {
			Message headerMessage `json:"message"`
		} `json:"header"`
	} `json:"data"`
}

func parseRoot(s string) ([32]byte, error) {
	var out [32]byte
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return out, errors.Errorf("invalid root %q", s)
	}
	copy(out[:], raw)
	return out, nil
}

// get issues a GET across the pool, retrying per the classifier until the
// pool is exhausted.
func (c *Client) get(ctx context.Context, path string, enc rpcreq.Encoding, preferred uint32) ([]byte, error) {
	if c.pool == nil {
		return nil, errors.New("no beacon nodes configured")
	}
	var exclude uint16
	var lastErr error
	for {
		idx, node, err := c.pool.Pick(exclude, preferred)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}
		body, status, err := c.do(ctx, node.URL+path, enc)
		if err != nil {
			lastErr = err
			exclude |= 1 << uint(idx)
			continue
		}
		switch rpcreq.Classify(status, path, body, rpcreq.BeaconAPI) {
		case rpcreq.Success:
			return body, nil
		case rpcreq.ErrorRetry:
			lastErr = errors.Errorf("%s: status %d from %s", path, status, node.URL)
			exclude |= 1 << uint(idx)
		default:
			return nil, errors.Errorf("%s: status %d", path, status)
		}
	}
}

func (c *Client) do(ctx context.Context, url string, enc rpcreq.Encoding) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	if enc == rpcreq.EncodingSSZ {
		req.Header.Set("Accept", "application/octet-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "beacon request")
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read body")
	}
	return body, res.StatusCode, nil
}

// Header is a beacon header plus its root as reported by the API.
type Header struct {
	Root   [32]byte
	Header types.BeaconHeader
}

// GetHeader fetches /eth/v1/beacon/headers/{ref}; ref is "head" or a
// 0x-prefixed root.
func (c *Client) GetHeader(ctx context.Context, ref string) (*Header, error) {
	body, err := c.get(ctx, "/eth/v1/beacon/headers/"+ref, rpcreq.EncodingJSON, 0)
	if err != nil {
		return nil, err
	}
	var resp headerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "parse header response")
	}
	msg := resp.Data.Header.Message
	out := &Header{Header: types.BeaconHeader{
		Slot:          uint64(msg.Slot),
		ProposerIndex: uint64(msg.ProposerIndex),
	}}
	if out.Root, err = parseRoot(resp.Data.Root); err != nil {
		return nil, err
	}
	if out.Header.ParentRoot, err = parseRoot(msg.ParentRoot); err != nil {
		return nil, err
	}
	if out.Header.StateRoot, err = parseRoot(msg.StateRoot); err != nil {
		return nil, err
	}
	if out.Header.BodyRoot, err = parseRoot(msg.BodyRoot); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHeaderByRoot fetches the header committing to root.
func (c *Client) GetHeaderByRoot(ctx context.Context, root [32]byte) (*Header, error) {
	return c.GetHeader(ctx, fmt.Sprintf("%#x", root))
}

// GetLightClientUpdates fetches raw framed updates for count periods.
func (c *Client) GetLightClientUpdates(ctx context.Context, startPeriod, count uint64) ([]byte, error) {
	path := fmt.Sprintf("/eth/v1/beacon/light_client/updates?start_period=%d&count=%d", startPeriod, count)
	raw, err := c.get(ctx, path, rpcreq.EncodingSSZ, 0)
	if err != nil {
		return nil, err
	}
	// Frame sanity before anything is cached to disk.
	if _, err := types.ParseFrames(raw); err != nil {
		return nil, errors.Wrapf(err, "updates for period %d", startPeriod)
	}
	return raw, nil
}

// GetBootstrap fetches the SSZ LightClientBootstrap for a trusted root.
func (c *Client) GetBootstrap(ctx context.Context, root [32]byte) ([]byte, error) {
	path := fmt.Sprintf("/eth/v1/beacon/light_client/bootstrap/%#x", root)
	return c.get(ctx, path, rpcreq.EncodingSSZ, 0)
}

// GetHistoricalSummaries fetches the historical summaries JSON, preferring
// nodes advertising the Lodestar vendor endpoint.
func (c *Client) GetHistoricalSummaries(ctx context.Context) ([]byte, error) {
	body, err := c.get(ctx, "/eth/v1/lodestar/states/head/historical_summaries",
		rpcreq.EncodingJSON, nodepool.ClientLodestar)
	if err == nil && bytes.Contains(body, []byte("historical_summaries")) {
		return body, nil
	}
	// Any beacon node flavour as fallback.
	return c.get(ctx, "/eth/v1/beacon/states/head/historical_summaries", rpcreq.EncodingJSON, 0)
}
