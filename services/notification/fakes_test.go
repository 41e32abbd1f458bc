package notification_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"mytelmed/database/repository/eventcache"
	"mytelmed/models"
	"mytelmed/services/notification"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func clock() time.Time { return fixedNow }

// ---- displayer ----

type shown struct {
	target notification.Target
	title  string
	opts   models.NotificationOptions
}

type fakeDisplayer struct {
	mu    sync.Mutex
	shown []shown
	// errs is consumed one per call; nil entries succeed
	errs  []error
	panic bool
}

func (d *fakeDisplayer) ShowNotification(_ context.Context, target notification.Target, title string, opts models.NotificationOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panic {
		d.panic = false
		panic("renderer exploded")
	}
	var err error
	if len(d.errs) > 0 {
		err, d.errs = d.errs[0], d.errs[1:]
	}
	if err != nil {
		return err
	}
	d.shown = append(d.shown, shown{target: target, title: title, opts: opts})
	return nil
}

// ---- clients ----

type fakeClients struct {
	open     []models.WindowClient
	listErr  error
	focusErr error
	canOpen  bool
	openErr  error
	focused  []string
	opened   []string
}

func (c *fakeClients) MatchAll(context.Context, string) ([]models.WindowClient, error) {
	return c.open, c.listErr
}

func (c *fakeClients) Focus(_ context.Context, id string) error {
	if c.focusErr != nil {
		return c.focusErr
	}
	c.focused = append(c.focused, id)
	return nil
}

func (c *fakeClients) CanOpenWindow(string) bool { return c.canOpen }

func (c *fakeClients) OpenWindow(_ context.Context, _ string, url string) error {
	if c.openErr != nil {
		return c.openErr
	}
	c.opened = append(c.opened, url)
	return nil
}

// ---- sink ----

type fakeSink struct {
	archived map[string]models.NotificationEvent
	err      error
}

func (s *fakeSink) Archive(_ context.Context, key string, event models.NotificationEvent) error {
	if s.err != nil {
		return s.err
	}
	if s.archived == nil {
		s.archived = map[string]models.NotificationEvent{}
	}
	s.archived[key] = event
	return nil
}

// ---- store that fails ----

var errStoreDown = errors.New("store down")

type failingStore struct {
	eventcache.Store
	addErr    error
	deleteErr error
	getErr    error
}

func (s *failingStore) Add(ctx context.Context, key string, value []byte) (bool, error) {
	if s.addErr != nil {
		return false, s.addErr
	}
	return s.Store.Add(ctx, key, value)
}

func (s *failingStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Store.Delete(ctx, key)
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, key)
}
