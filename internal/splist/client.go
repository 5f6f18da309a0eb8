// Package splist is a client for the list-items REST API:
//
//	{site}/_api/web/lists/getbytitle('{list}')/items[({id})]
//
// Every call is a single request/response (no retries, no caching). Writes use
// POST with an X-HTTP-Method override and an IF-MATCH precondition.
package splist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spcrud-cli/internal/model"
	"spcrud-cli/internal/odata"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	selectQuery = "$select=Title,Id"
	latestQuery = "$select=Title,Id&$orderby=Id%20desc&$top=1"
)

type Client struct {
	siteURL    string
	httpClient *http.Client
	token      string
	timeout    time.Duration
	requestIDs bool
	log        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero (the default) means no timeout. It
// applies to the client passed with WithHTTPClient too, whatever the option order,
// without mutating it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRequestIDs toggles the client-request-id correlation header (on by default).
func WithRequestIDs(on bool) Option {
	return func(c *Client) { c.requestIDs = on }
}

func New(siteURL string, opts ...Option) (*Client, error) {
	siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if siteURL == "" {
		return nil, errors.New("site url is empty")
	}
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("site url must be http(s): %s", siteURL)
	}
	c := &Client{
		siteURL:    siteURL,
		httpClient: &http.Client{},
		requestIDs: true,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

func (c *Client) SiteURL() string { return c.siteURL }

func (c *Client) itemsURL(listTitle string) string {
	return c.siteURL + "/_api/web/lists/" + odata.EscapeSegment(odata.GetByTitle(listTitle)) + "/items"
}

func (c *Client) itemURL(listTitle string, id int) string {
	return c.itemsURL(listTitle) + "(" + strconv.Itoa(id) + ")"
}

type itemsEnvelope struct {
	Value *[]model.ListItem `json:"value"`
}

type itemPayload struct {
	ID    *int   `json:"Id"`
	Title string `json:"Title"`
}

func (c *Client) ListItems(ctx context.Context, listTitle string) ([]model.ListItem, error) {
	items, err := c.queryItems(ctx, "list items", listTitle, selectQuery)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errNoItems(listTitle)
	}
	return items, nil
}

func (c *Client) LatestItem(ctx context.Context, listTitle string) (model.ListItem, error) {
	items, err := c.queryItems(ctx, "latest item", listTitle, latestQuery)
	if err != nil {
		return model.ListItem{}, err
	}
	if len(items) == 0 {
		return model.ListItem{}, NotFoundError{Kind: "items", Key: listTitle, Reason: "no items found in list"}
	}
	return items[0], nil
}

func (c *Client) queryItems(ctx context.Context, op, listTitle, query string) ([]model.ListItem, error) {
	resp, body, err := c.do(ctx, op, http.MethodGet, c.itemsURL(listTitle)+"?"+query, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errListNotFound(listTitle)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, body)
	}
	var env itemsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", op, err)
	}
	if env.Value == nil {
		return nil, errListNotFound(listTitle)
	}
	return *env.Value, nil
}

func (c *Client) GetItem(ctx context.Context, listTitle string, id int) (model.ItemVersion, error) {
	if id <= 0 {
		return model.ItemVersion{}, errItemNotFound(id)
	}
	resp, body, err := c.do(ctx, "get item", http.MethodGet, c.itemURL(listTitle, id)+"?"+selectQuery, nil, nil)
	if err != nil {
		return model.ItemVersion{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return model.ItemVersion{}, notFoundFor(listTitle, id, body)
	}
	if resp.StatusCode != http.StatusOK {
		return model.ItemVersion{}, apiError(resp, body)
	}
	var p itemPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.ItemVersion{}, fmt.Errorf("decode get item: %w", err)
	}
	if p.ID == nil || *p.ID == 0 {
		return model.ItemVersion{}, errItemNotFound(id)
	}
	return model.ItemVersion{
		Item: model.ListItem{ID: *p.ID, Title: p.Title},
		ETag: resp.Header.Get("ETag"),
	}, nil
}

// Selector names the item a read-before-write targets.
type Selector struct {
	id     int
	latest bool
}

func ByID(id int) Selector { return Selector{id: id} }
func Latest() Selector     { return Selector{latest: true} }

func (s Selector) String() string {
	if s.latest {
		return "latest"
	}
	return strconv.Itoa(s.id)
}

// ResolveTargetItem reads the item a selector points to, including its ETag.
// An explicit id of 0 fails without touching the network.
func (c *Client) ResolveTargetItem(ctx context.Context, listTitle string, sel Selector) (model.ItemVersion, error) {
	id := sel.id
	if sel.latest {
		it, err := c.LatestItem(ctx, listTitle)
		if err != nil {
			return model.ItemVersion{}, err
		}
		id = it.ID
	} else if id <= 0 {
		return model.ItemVersion{}, NotFoundError{Kind: "item", Key: "0", Reason: "choose the item first"}
	}
	return c.GetItem(ctx, listTitle, id)
}

func (c *Client) CreateItem(ctx context.Context, listTitle, title string) (model.ListItem, error) {
	payload, err := json.Marshal(map[string]string{"Title": title})
	if err != nil {
		return model.ListItem{}, err
	}
	resp, body, err := c.do(ctx, "create item", http.MethodPost, c.itemsURL(listTitle), payload, nil)
	if err != nil {
		return model.ListItem{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return model.ListItem{}, errListNotFound(listTitle)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return model.ListItem{}, apiError(resp, body)
	}
	var p itemPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.ListItem{}, CreateError{Reason: "response is not an item: " + err.Error()}
	}
	if p.ID == nil || *p.ID == 0 {
		return model.ListItem{}, CreateError{Reason: "response has no item id"}
	}
	return model.ListItem{ID: *p.ID, Title: p.Title}, nil
}

// UpdateItem overwrites the Title of item id. ifMatch is sent verbatim ("*" for unconditional).
func (c *Client) UpdateItem(ctx context.Context, listTitle string, id int, title, ifMatch string) error {
	payload, err := json.Marshal(map[string]string{"Title": title})
	if err != nil {
		return err
	}
	hdr := http.Header{}
	hdr.Set(odata.HeaderMethodOverride, odata.MethodMerge)
	setIfMatch(hdr, ifMatch)
	return c.write(ctx, "update item", listTitle, id, payload, hdr)
}

// DeleteItem removes item id if its current ETag matches ifMatch.
func (c *Client) DeleteItem(ctx context.Context, listTitle string, id int, ifMatch string) error {
	hdr := http.Header{}
	hdr.Set(odata.HeaderMethodOverride, odata.MethodDelete)
	setIfMatch(hdr, ifMatch)
	return c.write(ctx, "delete item", listTitle, id, nil, hdr)
}

func setIfMatch(hdr http.Header, v string) {
	if v = strings.TrimSpace(v); v != "" {
		hdr.Set(odata.HeaderIfMatch, v)
	}
}

func (c *Client) write(ctx context.Context, op, listTitle string, id int, payload []byte, hdr http.Header) error {
	if id <= 0 {
		return errItemNotFound(id)
	}
	resp, body, err := c.do(ctx, op, http.MethodPost, c.itemURL(listTitle, id), payload, hdr)
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return notFoundFor(listTitle, id, body)
	case http.StatusPreconditionFailed:
		return PreconditionFailedError{ID: id}
	default:
		return apiError(resp, body)
	}
}

func (c *Client) do(ctx context.Context, op, method, rawURL string, payload []byte, hdr http.Header) (*http.Response, []byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", odata.MediaTypeNoMetadata)
	req.Header["odata-version"] = []string{""}
	if payload != nil {
		req.Header.Set("Content-Type", odata.MediaTypeNoMetadata)
	}
	for k, vs := range hdr {
		req.Header[k] = vs
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	reqID := ""
	if c.requestIDs {
		reqID = uuid.NewString()
		req.Header.Set(odata.HeaderRequestID, reqID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("op", op), zap.String("method", method), zap.String("url", rawURL), zap.String("request_id", reqID), zap.Error(err))
		return nil, nil, NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	c.log.Debug("request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", reqID),
	)
	return resp, body, nil
}

func notFoundFor(listTitle string, id int, body []byte) error {
	if code, _, ok := odata.ParseErrorBody(body); ok && code == odata.CodeListNotFound {
		return errListNotFound(listTitle)
	}
	return errItemNotFound(id)
}

func apiError(resp *http.Response, body []byte) error {
	e := APIError{Status: resp.StatusCode}
	if code, msg, ok := odata.ParseErrorBody(body); ok {
		e.Code, e.Message = code, msg
	} else if s := strings.TrimSpace(string(body)); s != "" && len(s) < 512 {
		e.Message = s
	}
	return e
}
