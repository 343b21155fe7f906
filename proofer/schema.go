package proofer

import (
	"hash/fnv"
	"regexp"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Param schemas use a tight micro-grammar: a comma separated tag list,
// one tag per positional parameter. A trailing '?' marks the parameter
// optional. Tags: address, bytes32, blockref, uint, bool, object,
// array(tag), any.
var methodSchemas = map[string]string{
	"eth_getProof":              "address,array(bytes32),blockref",
	"eth_getBalance":            "address,blockref",
	"eth_getTransactionCount":   "address,blockref",
	"eth_getCode":               "address,blockref",
	"eth_getStorageAt":          "address,bytes32,blockref",
	"eth_getTransactionByHash":  "bytes32",
	"eth_getTransactionReceipt": "bytes32",
	"eth_getLogs":               "object",
	"eth_getBlockByNumber":      "blockref,bool?",
	"eth_getBlockByHash":        "bytes32,bool?",
	"eth_call":                  "object,blockref?",
	"eth_proof_sync":            "uint",
}

var (
	addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	bytes32Re = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	qtyRe     = regexp.MustCompile(`^0x[0-9a-fA-F]{1,16}$`)
)

// validationCache memoizes verdicts by FNV-1a of schema || 0x00 || raw.
var validationCache = struct {
	once sync.Once
	lru  *lru.Cache
}{}

func validationKey(schema string, raw []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(schema))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(raw)
	return h.Sum64()
}

// ValidateParams checks raw positional params against a method's schema.
func ValidateParams(method string, raw []byte) error {
	schema, ok := methodSchemas[method]
	if !ok {
		return errors.Errorf("Unsupported method: %s", method)
	}
	validationCache.once.Do(func() {
		validationCache.lru, _ = lru.New(32)
	})
	key := validationKey(schema, raw)
	if v, ok := validationCache.lru.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.(error)
	}
	err := validate(schema, raw)
	if err == nil {
		validationCache.lru.Add(key, nil)
	} else {
		validationCache.lru.Add(key, err)
	}
	return err
}

func validate(schema string, raw []byte) error {
	var params []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil {
		return errors.New("params must be a JSON array")
	}
	tags := strings.Split(schema, ",")
	for i, tag := range tags {
		optional := strings.HasSuffix(tag, "?")
		tag = strings.TrimSuffix(tag, "?")
		if i >= len(params) {
			if optional {
				return nil
			}
			return errors.Errorf("missing parameter %d (%s)", i, tag)
		}
		if err := validateValue(tag, params[i]); err != nil {
			return errors.Wrapf(err, "parameter %d", i)
		}
	}
	if len(params) > len(tags) {
		return errors.Errorf("too many parameters: got %d, want at most %d", len(params), len(tags))
	}
	return nil
}

func validateValue(tag string, raw jsoniter.RawMessage) error {
	if strings.HasPrefix(tag, "array(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(tag, "array("), ")")
		var items []jsoniter.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return errors.New("expected an array")
		}
		for _, item := range items {
			if err := validateValue(inner, item); err != nil {
				return err
			}
		}
		return nil
	}
	switch tag {
	case "any":
		return nil
	case "object":
		var obj map[string]jsoniter.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return errors.New("expected an object")
		}
		return nil
	case "bool":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return errors.New("expected a boolean")
		}
		return nil
	case "uint":
		var u uint64
		if err := json.Unmarshal(raw, &u); err != nil {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil || !qtyRe.MatchString(s) {
				return errors.New("expected an unsigned integer")
			}
		}
		return nil
	case "address", "bytes32", "blockref":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return errors.Errorf("expected a %s string", tag)
		}
		switch tag {
		case "address":
			if !addressRe.MatchString(s) {
				return errors.Errorf("invalid address %q", s)
			}
		case "bytes32":
			if !bytes32Re.MatchString(s) {
				return errors.Errorf("invalid 32 byte hex %q", s)
			}
		case "blockref":
			switch s {
			case "latest", "finalized", "safe", "earliest", "pending":
			default:
				if !qtyRe.MatchString(s) && !bytes32Re.MatchString(s) {
					return errors.Errorf("invalid block reference %q", s)
				}
			}
		}
		return nil
	}
	return errors.Errorf("unknown schema tag %q", tag)
}
