package webpart

import (
	"context"
	"errors"
	"fmt"

	"spcrud-cli/internal/model"
	"spcrud-cli/internal/splist"

	"go.uber.org/zap"
)

const (
	DefaultCreateTitle = "new-item"
	DefaultUpdateTitle = "updated-item"

	errNoListTitle = "enter a list title first"
)

// Client is the subset of splist.Client the form uses.
type Client interface {
	ListItems(ctx context.Context, listTitle string) ([]model.ListItem, error)
	ResolveTargetItem(ctx context.Context, listTitle string, sel splist.Selector) (model.ItemVersion, error)
	CreateItem(ctx context.Context, listTitle, title string) (model.ListItem, error)
	UpdateItem(ctx context.Context, listTitle string, id int, title, ifMatch string) error
	DeleteItem(ctx context.Context, listTitle string, id int, ifMatch string) error
}

type Controller struct {
	client Client
	mode   model.TargetMode
	policy model.ConcurrencyPolicy
	log    *zap.Logger
}

type Option func(*Controller)

func WithTargetMode(m model.TargetMode) Option {
	return func(c *Controller) {
		if m != "" {
			c.mode = m
		}
	}
}

func WithConcurrencyPolicy(p model.ConcurrencyPolicy) Option {
	return func(c *Controller) {
		if p.Update != "" {
			c.policy.Update = p.Update
		}
		if p.Delete != "" {
			c.policy.Delete = p.Delete
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func NewController(client Client, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		mode:   model.TargetSelected,
		policy: model.DefaultConcurrencyPolicy(),
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) TargetMode() model.TargetMode { return c.mode }

// Do runs op to completion. Failures come back as a status line; Do never
// returns a Go error to the shell.
func (c *Controller) Do(ctx context.Context, op Op, req Request) Result {
	if req.ListTitle == "" {
		return c.fail(op, errors.New(errNoListTitle))
	}
	switch op {
	case OpCreate:
		return c.create(ctx, req)
	case OpRead:
		return c.read(ctx, req)
	case OpUpdate:
		return c.update(ctx, req)
	case OpDelete:
		return c.delete(ctx, req)
	case OpGetAll:
		return c.getAll(ctx, req.ListTitle, "")
	default:
		return c.fail(op, fmt.Errorf("unknown operation %s", op))
	}
}

func (c *Controller) selector(req Request) splist.Selector {
	if c.mode == model.TargetLatest {
		return splist.Latest()
	}
	return splist.ByID(req.SelectedID)
}

func (c *Controller) create(ctx context.Context, req Request) Result {
	title := req.ItemTitle
	if title == "" {
		title = DefaultCreateTitle
	}
	it, err := c.client.CreateItem(ctx, req.ListTitle, title)
	if err != nil {
		return c.fail(OpCreate, err)
	}
	res := c.getAll(ctx, req.ListTitle, fmt.Sprintf(`Item with title: "%s" and id: "%d" successfully created`, it.Title, it.ID))
	res.Op, res.Item = OpCreate, &it
	return res
}

func (c *Controller) read(ctx context.Context, req Request) Result {
	v, err := c.client.ResolveTargetItem(ctx, req.ListTitle, c.selector(req))
	if err != nil {
		return c.fail(OpRead, err)
	}
	it := v.Item
	return Result{Op: OpRead, Status: fmt.Sprintf("Item Id: %d, Title: %s", it.ID, it.Title), Item: &it}
}

func (c *Controller) update(ctx context.Context, req Request) Result {
	title := req.ItemTitle
	if title == "" {
		title = DefaultUpdateTitle
	}
	v, err := c.client.ResolveTargetItem(ctx, req.ListTitle, c.selector(req))
	if err != nil {
		res := c.fail(OpRead, err)
		res.Op = OpUpdate
		return res
	}
	id := v.Item.ID
	if err := c.client.UpdateItem(ctx, req.ListTitle, id, title, c.policy.Update.IfMatch(v)); err != nil {
		return c.fail(OpUpdate, err)
	}
	res := c.getAll(ctx, req.ListTitle, fmt.Sprintf("Item with Id: %d successfully updated", id))
	res.Op, res.Item = OpUpdate, &model.ListItem{ID: id, Title: title}
	return res
}

func (c *Controller) delete(ctx context.Context, req Request) Result {
	v, err := c.client.ResolveTargetItem(ctx, req.ListTitle, c.selector(req))
	if err != nil {
		res := c.fail(OpRead, err)
		res.Op = OpDelete
		return res
	}
	it := v.Item
	if err := c.client.DeleteItem(ctx, req.ListTitle, it.ID, c.policy.Delete.IfMatch(v)); err != nil {
		return c.fail(OpDelete, err)
	}
	res := c.getAll(ctx, req.ListTitle, fmt.Sprintf("Item with Id: %d successfully deleted", it.ID))
	res.Op, res.Item, res.ResetSelection = OpDelete, &it, true
	return res
}

// getAll reloads the dropdown. success overrides the default status line.
func (c *Controller) getAll(ctx context.Context, listTitle, success string) Result {
	if success == "" {
		success = "All items were read successfully"
	}
	items, err := c.client.ListItems(ctx, listTitle)
	if err != nil {
		res := c.fail(OpGetAll, err)
		var nf splist.NotFoundError
		if errors.As(err, &nf) && (nf.Kind == "list" || errors.Is(err, splist.ErrEmptyList)) {
			res.ItemsLoaded = true
		}
		return res
	}
	return Result{Op: OpGetAll, Status: success, ItemsLoaded: true, Items: items}
}

func (c *Controller) fail(op Op, err error) Result {
	c.log.Debug("form operation failed", zap.Stringer("op", op), zap.Error(err))
	return Result{Op: op, Status: op.errorPrefix() + err.Error(), Err: err}
}
