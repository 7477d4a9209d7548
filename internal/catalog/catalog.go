// Package catalog persists workflow and module documents in Redis.
// Documents are stored as JSON values under a configurable key prefix,
// with a set per document type acting as the listing index.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/auraflow/auraflow/pkg/api"
)

type (
	// Catalog is the workflow and module document store
	Catalog struct {
		rdb    *redis.Client
		prefix string
		now    func() time.Time
	}

	// Options configures the Redis connection
	Options struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrModuleNotFound   = errors.New("module not found")
	ErrPresetImmutable  = errors.New("preset module cannot be changed")
)

// New connects a catalog to Redis
func New(opts Options) *Catalog {
	return &Catalog{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: opts.Prefix,
		now:    time.Now,
	}
}

// Ping verifies the Redis connection
func (c *Catalog) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection
func (c *Catalog) Close() error {
	return c.rdb.Close()
}

// PutWorkflow validates and stores a workflow document, stamping its
// last-modified time
func (c *Catalog) PutWorkflow(
	ctx context.Context, wf *api.Workflow,
) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	wf.LastModified = c.now()

	data, err := json.Marshal(wf)
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.workflowKey(wf.ID), data, 0)
	pipe.SAdd(ctx, c.indexKey("workflows"), string(wf.ID))
	_, err = pipe.Exec(ctx)
	return err
}

// GetWorkflow loads a workflow document by id
func (c *Catalog) GetWorkflow(
	ctx context.Context, id api.WorkflowID,
) (*api.Workflow, error) {
	data, err := c.rdb.Get(ctx, c.workflowKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var wf api.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// ListWorkflows returns digests for every stored workflow
func (c *Catalog) ListWorkflows(
	ctx context.Context,
) ([]*api.WorkflowDigest, error) {
	ids, err := c.rdb.SMembers(ctx, c.indexKey("workflows")).Result()
	if err != nil {
		return nil, err
	}

	res := make([]*api.WorkflowDigest, 0, len(ids))
	for _, id := range ids {
		wf, err := c.GetWorkflow(ctx, api.WorkflowID(id))
		if errors.Is(err, ErrWorkflowNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, &api.WorkflowDigest{
			ID:           wf.ID,
			Name:         wf.Name,
			NodeCount:    len(wf.Nodes),
			LastModified: wf.LastModified,
		})
	}
	return res, nil
}

// DeleteWorkflow removes a workflow document
func (c *Catalog) DeleteWorkflow(
	ctx context.Context, id api.WorkflowID,
) error {
	removed, err := c.rdb.Del(ctx, c.workflowKey(id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return c.rdb.SRem(ctx, c.indexKey("workflows"), string(id)).Err()
}

// PutModule validates and stores a module definition
func (c *Catalog) PutModule(ctx context.Context, m *api.Module) error {
	existing, err := c.GetModule(ctx, m.ID)
	if err != nil && !errors.Is(err, ErrModuleNotFound) {
		return err
	}
	if existing != nil && existing.Preset {
		return fmt.Errorf("%w: %s", ErrPresetImmutable, m.ID)
	}
	return c.putModuleRecord(ctx, m)
}

// GetModule loads a module definition by id
func (c *Catalog) GetModule(
	ctx context.Context, id api.ModuleID,
) (*api.Module, error) {
	data, err := c.rdb.Get(ctx, c.moduleKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var m api.Module
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModules returns every stored module definition
func (c *Catalog) ListModules(
	ctx context.Context,
) ([]*api.Module, error) {
	ids, err := c.rdb.SMembers(ctx, c.indexKey("modules")).Result()
	if err != nil {
		return nil, err
	}

	res := make([]*api.Module, 0, len(ids))
	for _, id := range ids {
		m, err := c.GetModule(ctx, api.ModuleID(id))
		if errors.Is(err, ErrModuleNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}

// DeleteModule removes a module definition. Presets are immutable
func (c *Catalog) DeleteModule(
	ctx context.Context, id api.ModuleID,
) error {
	m, err := c.GetModule(ctx, id)
	if err != nil {
		return err
	}
	if m.Preset {
		return fmt.Errorf("%w: %s", ErrPresetImmutable, id)
	}

	if err := c.rdb.Del(ctx, c.moduleKey(id)).Err(); err != nil {
		return err
	}
	return c.rdb.SRem(ctx, c.indexKey("modules"), string(id)).Err()
}

func (c *Catalog) workflowKey(id api.WorkflowID) string {
	return fmt.Sprintf("%s:workflow:%s", c.prefix, id)
}

func (c *Catalog) moduleKey(id api.ModuleID) string {
	return fmt.Sprintf("%s:module:%s", c.prefix, id)
}

func (c *Catalog) indexKey(kind string) string {
	return fmt.Sprintf("%s:%s", c.prefix, kind)
}
