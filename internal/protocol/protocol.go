package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the protocol marker carried by every request and response.
const Version = "2.0"

// Reserved error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a single remote call. A request without an ID is a
// notification: the sender expects no response.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      interface{} `json:"id,omitempty"`
}

// NewRequest builds a correlated request.
func NewRequest(id interface{}, method string, params interface{}) Request {
	return Request{JSONRPC: Version, Method: method, Params: params, ID: id}
}

// NewNotification builds a fire-and-forget request carrying no ID.
func NewNotification(method string, params interface{}) Request {
	return Request{JSONRPC: Version, Method: method, Params: params}
}

// IsNotification reports whether the request expects no response.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Error is a protocol-level error carried inside a response.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Response is the answer to a correlated request. Exactly one of Result
// and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IDKey normalizes a request ID to a map key. Numeric IDs arrive from
// JSON as float64, so ids sent as uint64 and received back must land on
// the same key.
func IDKey(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return "s:" + v
	case float64:
		return "n:" + strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return "n:" + strconv.Itoa(v)
	case int64:
		return "n:" + strconv.FormatInt(v, 10)
	case uint64:
		return "n:" + strconv.FormatUint(v, 10)
	default:
		return fmt.Sprintf("v:%v", v)
	}
}
