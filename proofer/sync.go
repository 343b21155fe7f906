package proofer

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/types"
)

// buildSync produces the sync committee transition proof of one period:
// the framed light client update served from the period store (or fetched
// through it), wrapped with the update's own aggregate as anchor.
func buildSync(c *Context) error {
	raw, err := c.param(0)
	if err != nil {
		return err
	}
	var period uint64
	if err := json.Unmarshal(raw, &period); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return errors.New("period must be a number")
		}
		if period, err = hexToUint64(s); err != nil {
			return err
		}
	}

	updates, err := c.internal(fmt.Sprintf("period_store/lcu?start=%d&count=1", period))
	if err != nil {
		return err
	}
	frames, err := types.ParseFrames(updates)
	if err != nil || len(frames) == 0 {
		return errors.Errorf("no light client update available for period %d", period)
	}
	update, err := types.ParseUpdate(frames[0].Payload)
	if err != nil {
		return errors.Wrapf(err, "update of period %d", period)
	}

	proof := &types.SyncProof{Period: period, Updates: updates}
	return c.finish(&types.C4Request{
		Version:  types.Version,
		Data:     types.Data{Selector: types.DataUint, Value: period},
		Proof:    types.Proof{Selector: types.ProofSync, Sync: proof},
		SyncData: update.SyncData(),
	})
}
