package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/coopco/castbot/internal/cast"
)

// HTTPClient talks to a hub node over its HTTP API.
type HTTPClient struct {
	base   string
	apiKey string
	http   *http.Client
}

// NewHTTPClient returns a client for the hub at base. apiKey may be empty;
// when set it is sent as a bearer token.
func NewHTTPClient(base, apiKey string) *HTTPClient {
	return &HTTPClient{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) SubmitMessage(ctx context.Context, msg *cast.Message) (*cast.Message, error) {
	var accepted cast.Message
	if err := c.post(ctx, "submitMessage", "/v1/submitMessage", msg, &accepted); err != nil {
		return nil, err
	}
	return &accepted, nil
}

func (c *HTTPClient) CastsByFid(ctx context.Context, fid uint64, limit int) ([]cast.Message, error) {
	q := url.Values{"fid": {strconv.FormatUint(fid, 10)}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.getMessages(ctx, "castsByFid", "/v1/castsByFid", q)
}

func (c *HTTPClient) CastsByParent(ctx context.Context, parent cast.CastID) ([]cast.Message, error) {
	q := url.Values{
		"fid":  {strconv.FormatUint(parent.Fid, 10)},
		"hash": {parent.Hash.String()},
	}
	return c.getMessages(ctx, "castsByParent", "/v1/castsByParent", q)
}

func (c *HTTPClient) ReactionsByTarget(ctx context.Context, target cast.CastID) ([]cast.Message, error) {
	q := url.Values{
		"target_fid":  {strconv.FormatUint(target.Fid, 10)},
		"target_hash": {target.Hash.String()},
	}
	return c.getMessages(ctx, "reactionsByTarget", "/v1/reactionsByTarget", q)
}

func (c *HTTPClient) UserDataByFid(ctx context.Context, fid uint64) ([]UserDataField, error) {
	var out struct {
		Fields []UserDataField `json:"fields"`
	}
	q := url.Values{"fid": {strconv.FormatUint(fid, 10)}}
	if err := c.get(ctx, "userDataByFid", "/v1/userDataByFid", q, &out); err != nil {
		return nil, err
	}
	return out.Fields, nil
}

func (c *HTTPClient) Info(ctx context.Context) (*NodeInfo, error) {
	var info NodeInfo
	if err := c.get(ctx, "info", "/v1/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPClient) getMessages(ctx context.Context, op, path string, q url.Values) ([]cast.Message, error) {
	var out struct {
		Messages []cast.Message `json:"messages"`
	}
	if err := c.get(ctx, op, path, q, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *HTTPClient) get(ctx context.Context, op, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return c.do(op, req, out)
}

func (c *HTTPClient) post(ctx context.Context, op, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, buf)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

func (c *HTTPClient) do(op string, req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return c.classify(op, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return nil
}

// classify maps a non-2xx response to the error taxonomy. Gateway-style
// statuses mean the request may never have reached a validating node, so they
// stay retryable; everything else is a node verdict.
func (c *HTTPClient) classify(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &TransportError{
			Op:  op,
			Err: fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	}

	rej := &RejectionError{Op: op, StatusCode: resp.StatusCode}
	if gjson.ValidBytes(body) {
		rej.Code = gjson.GetBytes(body, "errCode").String()
		rej.Detail = gjson.GetBytes(body, "details").String()
	}
	if rej.Detail == "" {
		rej.Detail = strings.TrimSpace(string(body))
	}
	return rej
}
