package rpcreq

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Class is the classifier verdict for an upstream response.
type Class int

const (
	// Success: the response is usable.
	Success Class = iota
	// ErrorUser: malformed client input, propagate to the caller.
	ErrorUser
	// ErrorMethodNotSupported: permanent, no node will serve it.
	ErrorMethodNotSupported
	// ErrorRetry: transient or node-local, retry with node exclusion.
	ErrorRetry
)

func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case ErrorUser:
		return "user-error"
	case ErrorMethodNotSupported:
		return "method-not-supported"
	case ErrorRetry:
		return "retry"
	}
	return "unknown"
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonRPCError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Messages a -32602 carries when the fault is the node's, not the user's.
var nonUserInvalidParams = []string{
	"unsupported param form",
	"cannot unmarshal",
	"hex string without 0x prefix",
	"method handler crashed",
}

// Classify is a pure function of (status, url, body, kind) implementing
// the retry taxonomy. It never inspects request state.
func Classify(status int, url string, body []byte, kind Kind) Class {
	// Auth failures are node-local configuration issues.
	if status == 401 {
		return ErrorRetry
	}
	if status >= 500 {
		return ErrorRetry
	}
	if status == 400 {
		if code, _ := jsonRPCErrorCode(body); code == -32004 {
			return ErrorMethodNotSupported
		}
		if kind == ExecRPC {
			return ErrorUser
		}
		return ErrorRetry
	}
	if status == 404 {
		if kind == BeaconAPI && strings.Contains(url, "/headers/") {
			// The node is lagging behind the requested header.
			return ErrorRetry
		}
		if kind == ExecRPC {
			return ErrorUser
		}
		return ErrorRetry
	}
	if status != 200 {
		if status >= 400 && status < 500 && kind == ExecRPC {
			return ErrorUser
		}
		return ErrorRetry
	}
	if kind == ExecRPC {
		code, msg := jsonRPCErrorCode(body)
		switch {
		case code == 0:
			return Success
		case code == -32004:
			return ErrorMethodNotSupported
		case code == -32601:
			return ErrorMethodNotSupported
		case code == -32602:
			for _, pat := range nonUserInvalidParams {
				if strings.Contains(strings.ToLower(msg), pat) {
					return ErrorRetry
				}
			}
			return ErrorUser
		case code == -32603:
			return ErrorRetry
		default:
			return ErrorUser
		}
	}
	return Success
}

// jsonRPCErrorCode extracts the JSON-RPC error code, 0 when absent.
func jsonRPCErrorCode(body []byte) (int, string) {
	var e jsonRPCError
	if err := json.Unmarshal(body, &e); err != nil || e.Error == nil {
		return 0, ""
	}
	return e.Error.Code, e.Error.Message
}
