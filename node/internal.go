package node

import (
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// parseLCUQuery parses the internal period_store/lcu?start=N&count=M url.
func parseLCUQuery(raw string) (uint64, uint64, error) {
	if !strings.HasPrefix(raw, "period_store/lcu") {
		return 0, 0, errors.Errorf("unknown internal url %q", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return 0, 0, errors.Wrap(err, "parse internal url")
	}
	start, err := strconv.ParseUint(u.Query().Get("start"), 10, 64)
	if err != nil {
		return 0, 0, errors.New("start is required")
	}
	count, err := strconv.ParseUint(u.Query().Get("count"), 10, 64)
	if err != nil || count == 0 {
		return 0, 0, errors.New("count is required")
	}
	return start, count, nil
}

func jsonMarshalParams(values ...interface{}) ([]byte, error) {
	return json.Marshal(values)
}
