package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"aura-api/domain"
)

// Names of the tables and queue backing a Storage.
type Names struct {
	Users         string
	Meetings      string
	Documents     string
	Conversations string
	SyncQueue     string
}

// Storage provides access to the document store and the sync-job queue.
type Storage struct {
	users         *aztables.Client
	meetings      *aztables.Client
	documents     *aztables.Client
	conversations *aztables.Client
	syncQueue     queueClient
	now           func() time.Time
}

// New creates a Storage instance from the given connection string.
func New(connStr string, names Names) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	var q queueClient
	if names.SyncQueue != "" {
		q, err = azqueue.NewQueueClientFromConnectionString(connStr, names.SyncQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
	}
	return &Storage{
		users:         svc.NewClient(names.Users),
		meetings:      svc.NewClient(names.Meetings),
		documents:     svc.NewClient(names.Documents),
		conversations: svc.NewClient(names.Conversations),
		syncQueue:     q,
		now:           time.Now,
	}, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

// getProps loads one entity as a property map; a missing entity is ErrNotFound.
func getProps(ctx context.Context, t *aztables.Client, pk, rk string) (props, error) {
	resp, err := t.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var p props
	if err := sonic.Unmarshal(resp.Value, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// listProps loads every entity matching filter.
func listProps(ctx context.Context, t *aztables.Client, filter string) ([]props, error) {
	opts := &aztables.ListEntitiesOptions{}
	if filter != "" {
		opts.Filter = &filter
	}
	pager := t.NewListEntitiesPager(opts)
	out := []props{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var p props
			if err := sonic.Unmarshal(e, &p); err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func upsertProps(ctx context.Context, t *aztables.Client, p props) error {
	if err := p.fits(); err != nil {
		return err
	}
	payload, err := sonic.Marshal(p)
	if err == nil {
		_, err = t.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	}
	return err
}

func deleteEntity(ctx context.Context, t *aztables.Client, pk, rk string) error {
	et := azcore.ETagAny
	_, err := t.DeleteEntity(ctx, pk, rk, &aztables.DeleteEntityOptions{IfMatch: &et})
	if err != nil && isNotFound(err) {
		return domain.ErrNotFound
	}
	return err
}

// eq renders an OData equality clause with the value quoted.
func eq(field, value string) string {
	return field + " eq '" + strings.ReplaceAll(value, "'", "''") + "'"
}

func newestFirst[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return at(items[i]).After(at(items[j])) })
}
