package bazaar

import (
	"context"
	"fmt"
	"log"
	"time"
)

const snapshotKey = "snapshot"

// FetchSnapshot returns the current bazaar snapshot.
//
// Within the snapshot TTL repeated calls return the cached snapshot without
// network I/O. Concurrent callers on a cold cache share one request.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	if v, ok := c.snapshots.Get(snapshotKey); ok {
		return v.(*Snapshot), nil
	}

	result, err, _ := c.group.Do(snapshotKey, func() (interface{}, error) {
		return c.fetchSnapshot(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

// Invalidate drops the cached snapshot so the next fetch hits the API.
func (c *Client) Invalidate() {
	c.snapshots.Delete(snapshotKey)
}

func (c *Client) fetchSnapshot(ctx context.Context) (*Snapshot, error) {
	if v, ok := c.snapshots.Get(snapshotKey); ok {
		return v.(*Snapshot), nil
	}

	var snap Snapshot
	if err := c.GetJSON(ctx, c.bazaarURL, &snap); err != nil {
		return nil, fmt.Errorf("fetch bazaar: %w", err)
	}
	if !snap.Success || len(snap.Products) == 0 {
		return nil, ErrUnavailable
	}

	if c.ttl > 0 {
		c.snapshots.Set(snapshotKey, &snap, c.ttl)
	}
	log.Printf("[Bazaar] Snapshot MISS (%d products, updated=%s)",
		len(snap.Products), time.UnixMilli(snap.LastUpdated).Format("15:04:05"))
	return &snap, nil
}
