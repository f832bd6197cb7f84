// Package itemstore is a client for the remote catalog/asset/history store.
//
// The store exposes generic collections of JSON items over HTTP with bearer
// authentication:
//
//	GET    /items/{collection}?filter[field][_op]=value&sort=f&limit=n
//	GET    /items/{collection}/{id}
//	POST   /items/{collection}
//	PATCH  /items/{collection}/{id}
//	POST   /files                     (multipart, field "file")
//
// Responses wrap their payload in {"data": ...}.
package itemstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrNotFound is matched by StatusError for 404 responses.
	ErrNotFound = errors.New("itemstore: item not found")

	// ErrUnavailable is returned when the store cannot be reached or answers 5xx.
	ErrUnavailable = errors.New("itemstore: store unavailable")

	// ErrMisconfigured is returned by NewClient when the base URL or token is missing.
	ErrMisconfigured = errors.New("itemstore: base URL and token are required")
)

const defaultTimeout = 10 * time.Second

// StatusError is a non-2xx answer from the store. Body holds the raw upstream text.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("itemstore: HTTP %d: %s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == fiber.StatusNotFound:
		return ErrNotFound
	case e.Status >= fiber.StatusInternalServerError:
		return ErrUnavailable
	}
	return nil
}

type Conf struct {
	BaseURL string
	Token   string
	// Timeout bounds every call; a shorter context deadline wins.
	Timeout time.Duration
}

type Client struct {
	conf Conf
}

func NewClient(conf Conf) (*Client, error) {
	if conf.BaseURL == "" || conf.Token == "" {
		return nil, ErrMisconfigured
	}
	if _, err := url.ParseRequestURI(conf.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	if conf.Timeout <= 0 {
		conf.Timeout = defaultTimeout
	}
	conf.BaseURL = strings.TrimRight(conf.BaseURL, "/")
	return &Client{conf: conf}, nil
}

// ListItems returns the items of collection matching q, in store order unless q.Sort is set.
func (c *Client) ListItems(ctx context.Context, collection string, q Query) ([]Item, error) {
	endpoint := c.itemsURL(collection, "")
	if qs := q.Encode(); qs != "" {
		endpoint += "?" + qs
	}
	body, err := c.do(ctx, fiber.Get(endpoint))
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := unwrapData(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, collection, id string) (Item, error) {
	body, err := c.do(ctx, fiber.Get(c.itemsURL(collection, id)))
	if err != nil {
		return nil, err
	}
	var item Item
	if err := unwrapData(body, &item); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

func (c *Client) CreateItem(ctx context.Context, collection string, payload any) (Item, error) {
	body, err := c.do(ctx, fiber.Post(c.itemsURL(collection, "")).JSON(payload))
	if err != nil {
		return nil, err
	}
	var item Item
	if err := unwrapData(body, &item); err != nil {
		return nil, err
	}
	return item, nil
}

func (c *Client) UpdateItem(ctx context.Context, collection, id string, payload any) (Item, error) {
	body, err := c.do(ctx, fiber.Patch(c.itemsURL(collection, id)).JSON(payload))
	if err != nil {
		return nil, err
	}
	var item Item
	if err := unwrapData(body, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// UploadFile stores raw bytes and returns the id the store assigned to the file.
func (c *Client) UploadFile(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("title", filename)
	if contentType != "" {
		args.Set("type", contentType)
	}

	a := fiber.Post(c.conf.BaseURL + "/files").
		FileData(&fiber.FormFile{Fieldname: "file", Name: filename, Content: data}).
		MultipartForm(args)

	body, err := c.do(ctx, a)
	if err != nil {
		return "", err
	}
	var item Item
	if err := unwrapData(body, &item); err != nil {
		return "", err
	}
	id := item.String("id")
	if id == "" {
		return "", fmt.Errorf("itemstore: upload response has no id")
	}
	return id, nil
}

func (c *Client) itemsURL(collection, id string) string {
	u := c.conf.BaseURL + "/items/" + url.PathEscape(collection)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

// releaseAgent returns an agent that never reached Bytes to the pool.
var releaseAgent = fiber.ReleaseAgent

// do sends the request with auth headers and the effective timeout, returning
// the 2xx body. The agent is released on every path.
func (c *Client) do(ctx context.Context, a *fiber.Agent) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		releaseAgent(a)
		return nil, err
	}
	timeout := c.conf.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		releaseAgent(a)
		return nil, context.DeadlineExceeded
	}

	a.Set(fiber.HeaderAuthorization, "Bearer "+c.conf.Token)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	a.Timeout(timeout)
	if err := a.Parse(); err != nil {
		releaseAgent(a)
		return nil, fmt.Errorf("itemstore: prepare request: %w", err)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return nil, &StatusError{Status: code, Body: string(body)}
	}
	return body, nil
}

func unwrapData(body []byte, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("itemstore: decode response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("itemstore: decode data: %w", err)
	}
	return nil
}
