package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/schema"

	"github.com/syntrixbase/viewcache/pkg/model"
)

// DefaultItemsAttr is the envelope key holding the item array when the
// source is not configured otherwise.
const DefaultItemsAttr = "records"

// Envelope keys with fixed meaning; everything else goes to Response.Meta.
const (
	envelopeNextKey  = "next"
	envelopeCountKey = "count"
)

// HTTP is a Source over a JSON HTTP API. Query issues GET <QueryURL>?...;
// Create issues POST <CreateURL>. The http.Client is injected so callers
// can bring their own transport (auth, proxies, timeouts).
type HTTP struct {
	QueryURL  string
	CreateURL string
	ItemsAttr string
	Client    *http.Client

	enc *schema.Encoder
}

// NewHTTP creates an HTTP source. createURL may be empty when the remote
// has no create operation; Create then fails.
func NewHTTP(queryURL, createURL string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{
		QueryURL:  queryURL,
		CreateURL: createURL,
		ItemsAttr: DefaultItemsAttr,
		Client:    client,
		enc:       schema.NewEncoder(),
	}
}

// Query fetches one page and normalizes the payload.
func (h *HTTP) Query(ctx context.Context, p Params) (*Response, error) {
	values := url.Values{}
	if err := h.enc.Encode(&p, values); err != nil {
		return nil, fmt.Errorf("encoding query params: %w", err)
	}
	for k, v := range p.Extra {
		values.Set(k, v)
	}

	u := h.QueryURL
	if strings.Contains(u, "?") {
		u += "&" + values.Encode()
	} else {
		u += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := h.do(req)
	if err != nil {
		return nil, err
	}
	return h.decode(body)
}

// Create asks the server to create a fresh record.
func (h *HTTP) Create(ctx context.Context) (model.Record, error) {
	if h.CreateURL == "" {
		return nil, fmt.Errorf("source has no create endpoint")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.CreateURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := h.do(req)
	if err != nil {
		return nil, err
	}
	var rec model.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decoding created record: %w", err)
	}
	return rec, nil
}

func (h *HTTP) do(req *http.Request) ([]byte, error) {
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// decode normalizes a payload that is either a bare record array or an
// envelope object nesting the array under ItemsAttr.
func (h *HTTP) decode(body []byte) (*Response, error) {
	trimmed := strings.TrimLeftFunc(string(body), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if strings.HasPrefix(trimmed, "[") {
		var items []model.Record
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decoding record array: %w", err)
		}
		return &Response{Items: items, Count: CountUnreported, Raw: true}, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	attr := h.ItemsAttr
	if attr == "" {
		attr = DefaultItemsAttr
	}
	out := &Response{Count: CountUnreported, Meta: map[string]any{}}
	for key, raw := range envelope {
		switch key {
		case attr:
			if err := json.Unmarshal(raw, &out.Items); err != nil {
				return nil, fmt.Errorf("decoding %q items: %w", attr, err)
			}
		case envelopeNextKey:
			// null cursor means no next page; leave Next empty.
			var next *string
			if err := json.Unmarshal(raw, &next); err != nil {
				return nil, fmt.Errorf("decoding next cursor: %w", err)
			}
			if next != nil {
				out.Next = *next
			}
		case envelopeCountKey:
			var count int
			if err := json.Unmarshal(raw, &count); err != nil {
				return nil, fmt.Errorf("decoding count: %w", err)
			}
			out.Count = count
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("decoding envelope field %q: %w", key, err)
			}
			out.Meta[key] = v
		}
	}
	return out, nil
}
