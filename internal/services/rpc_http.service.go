package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nigran/internal/protocol"
)

// callHTTP issues one request over the discrete-exchange carrier: a
// single POST with a JSON body, cancelled when the timeout elapses. A
// 2xx exchange whose body carries a protocol error surfaces that error
// instead of a result.
func (c *RPCClient) callHTTP(ctx context.Context, method string, params interface{}, o CallOptions) (json.RawMessage, error) {
	var req protocol.Request
	if o.Notification {
		req = protocol.NewNotification(method, params)
	} else {
		c.mu.Lock()
		c.nextID++
		id := c.nextID
		c.mu.Unlock()
		req = protocol.NewRequest(id, method, params)
	}
	raw, err := c.postJSON(ctx, req, o.Timeout)
	if err != nil {
		return nil, err
	}
	if o.Notification {
		return nil, nil
	}
	var resp protocol.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func (c *RPCClient) postJSON(ctx context.Context, payload interface{}, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = c.opts.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.httpURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.opts.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %d", httpResp.StatusCode)
	}
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// BatchRequest is one entry of a batch call.
type BatchRequest struct {
	Method       string
	Params       interface{}
	Notification bool
}

// BatchCall sends the requests as one discrete-exchange batch and maps
// the responses back into input order; notification entries get a nil
// slot. The whole batch fails on the first protocol error found while
// mapping.
func (c *RPCClient) BatchCall(ctx context.Context, reqs []BatchRequest) ([]json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	batch := make([]protocol.Request, 0, len(reqs))
	keyToIndex := make(map[string]int, len(reqs))
	for i, r := range reqs {
		if r.Notification {
			batch = append(batch, protocol.NewNotification(r.Method, r.Params))
			continue
		}
		c.mu.Lock()
		c.nextID++
		id := c.nextID
		c.mu.Unlock()
		keyToIndex[protocol.IDKey(id)] = i
		batch = append(batch, protocol.NewRequest(id, r.Method, r.Params))
	}

	raw, err := c.postJSON(ctx, batch, 0)
	if err != nil {
		return nil, err
	}
	results := make([]json.RawMessage, len(reqs))
	if len(keyToIndex) == 0 {
		return results, nil
	}
	var resps []protocol.Response
	if err := json.Unmarshal(raw, &resps); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	for _, resp := range resps {
		idx, ok := keyToIndex[protocol.IDKey(resp.ID)]
		if !ok {
			continue
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("batch entry %d (%s): %w", idx, reqs[idx].Method, resp.Error)
		}
		results[idx] = resp.Result
	}
	return results, nil
}
