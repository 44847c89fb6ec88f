package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/alanyang/prompt-manager/internal/domain/event"
	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	porteventbus "github.com/alanyang/prompt-manager/internal/port/eventbus"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

// ErrNotFound is returned when an id does not name a prompt in the current collection.
var ErrNotFound = errors.New("prompt not found")

// Options carries the optional collaborators of a Service.
type Options struct {
	// Cache provides the fast-paint snapshot at Start and receives every new snapshot.
	Cache portprompt.SnapshotCache
	// Bus receives prompt events. Nil disables publishing.
	Bus porteventbus.EventBus
	// SearchDelay defers filtered-view recomputation after a query change.
	// Zero recomputes synchronously.
	SearchDelay time.Duration

	Now   func() time.Time
	NewID func() string
}

// View is a consistent read of the whole state.
type View struct {
	Prompts  []domainprompt.Prompt `json:"prompts"`
	Filtered []domainprompt.Prompt `json:"filtered"`
	Selected *domainprompt.Prompt  `json:"selected"`
	Query    string                `json:"query"`
	Loading  bool                  `json:"loading"`
	Error    string                `json:"error,omitempty"`
	Backend  portprompt.Backend    `json:"backend"`
	// BackendLabel is the indicator text: "Cloud Sync" or "Local Only".
	BackendLabel string `json:"backendLabel"`
	// Banner is set when the deployment lacks remote credentials.
	Banner string `json:"banner,omitempty"`
}

// Service holds the authoritative in-memory prompt collection and is its only writer.
// Mutations are write-through: the store's returned snapshot replaces the collection.
// [SRP] Prompt state only; persistence is delegated to the Store port.
// [DIP] Depends on port/prompt.Store, never on a concrete backend.
type Service struct {
	store portprompt.Store
	cache portprompt.SnapshotCache
	bus   porteventbus.EventBus
	now   func() time.Time
	newID func() string

	// writes admits one mutation at a time, in arrival order.
	writes  *semaphore.Weighted
	refresh singleflight.Group
	search  *debouncer
	bg      sync.WaitGroup

	mu       sync.RWMutex
	prompts  []domainprompt.Prompt
	loading  bool
	lastErr  string
	selected string
	query    string
	deferred string
	filtered []domainprompt.Prompt
	issued   uint64
	applied  uint64
}

func NewService(store portprompt.Store, opts Options) *Service {
	s := &Service{
		store:    store,
		cache:    opts.Cache,
		bus:      opts.Bus,
		now:      opts.Now,
		newID:    opts.NewID,
		writes:   semaphore.NewWeighted(1),
		search:   newDebouncer(opts.SearchDelay),
		prompts:  []domainprompt.Prompt{},
		filtered: []domainprompt.Prompt{},
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Start loads the initial collection. With a cached snapshot it returns at once
// and refreshes in the background; otherwise it reports loading until the first
// fetch resolves.
func (s *Service) Start(ctx context.Context) error {
	if s.cache != nil {
		if cached, ok := s.cache.Load(ctx); ok {
			s.mu.Lock()
			if s.applied == 0 {
				s.prompts = domainprompt.Clone(cached)
				s.filtered = domainprompt.Filter(s.prompts, s.deferred)
			}
			s.loading = false
			s.mu.Unlock()

			slog.Info("prompt state painted from cache", "count", len(cached))

			bgCtx := context.WithoutCancel(ctx)
			s.bg.Add(1)
			go func() {
				defer s.bg.Done()
				if err := s.Refresh(bgCtx); err != nil {
					slog.Warn("background refresh failed", "error", err)
				}
			}()
			return nil
		}
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Close waits for background refreshes and stops the pending search recompute.
func (s *Service) Close() {
	s.search.Stop()
	s.bg.Wait()
}

// Refresh re-reads the collection from the store. Concurrent calls share one fetch.
// A fetch that resolves after a newer snapshot was applied is discarded.
func (s *Service) Refresh(ctx context.Context) error {
	_, err, _ := s.refresh.Do("refresh", func() (any, error) {
		ticket := s.ticket()
		prompts, err := s.store.FetchAll(ctx)
		if err != nil {
			s.fail("load prompts", err)
			return nil, err
		}
		s.apply(ctx, ticket, prompts)
		s.publish(ctx, event.New(event.TypePromptsRefreshed, ""))
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("refresh prompts: %w", err)
	}
	return nil
}

// Add validates the draft, stamps a new prompt and writes it through.
func (s *Service) Add(ctx context.Context, d domainprompt.Draft) (domainprompt.Prompt, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return domainprompt.Prompt{}, err
	}

	var created domainprompt.Prompt
	err := s.write(ctx, "save the prompt", func(ctx context.Context) ([]domainprompt.Prompt, error) {
		created = domainprompt.New(d, s.newID(), s.now())
		return s.store.Add(ctx, created)
	})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("add prompt: %w", err)
	}

	s.publish(ctx, event.New(event.TypePromptCreated, created.ID))
	return created, nil
}

// Update replaces title, description and color of the prompt with the given id.
// The id and creation time are preserved; an unknown id changes nothing.
func (s *Service) Update(ctx context.Context, id string, d domainprompt.Draft) (domainprompt.Prompt, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return domainprompt.Prompt{}, err
	}

	var revised domainprompt.Prompt
	err := s.write(ctx, "update the prompt", func(ctx context.Context) ([]domainprompt.Prompt, error) {
		current, ok := s.lookup(id)
		if !ok {
			return nil, ErrNotFound
		}
		revised = current.Revise(d, s.now())
		return s.store.Update(ctx, revised)
	})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("update prompt %s: %w", id, err)
	}

	s.publish(ctx, event.New(event.TypePromptUpdated, id))
	return revised, nil
}

// Delete removes the prompt and clears the selection if it pointed at it.
// Deleting an unknown id leaves the collection unchanged.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.write(ctx, "delete the prompt", func(ctx context.Context) ([]domainprompt.Prompt, error) {
		return s.store.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete prompt %s: %w", id, err)
	}

	s.mu.Lock()
	if s.selected == id {
		s.selected = ""
	}
	s.mu.Unlock()

	s.publish(ctx, event.New(event.TypePromptDeleted, id))
	return nil
}

// write runs one store mutation under the write queue and applies its snapshot.
// On failure the collection is untouched and a displayable message is recorded.
func (s *Service) write(ctx context.Context, action string, fn func(context.Context) ([]domainprompt.Prompt, error)) error {
	if err := s.writes.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writes.Release(1)

	prompts, err := fn(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.fail(action, err)
		}
		return err
	}
	s.apply(ctx, 0, prompts)
	return nil
}

func (s *Service) ticket() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// apply installs a snapshot. A zero ticket marks a mutation result and is issued
// under the lock, so every fetch that began before the mutation landed is stale.
func (s *Service) apply(ctx context.Context, ticket uint64, prompts []domainprompt.Prompt) {
	s.mu.Lock()
	if ticket == 0 {
		s.issued++
		ticket = s.issued
	}
	if ticket < s.applied {
		s.mu.Unlock()
		slog.Debug("discarding stale snapshot", "ticket", ticket, "applied", s.applied)
		return
	}
	s.applied = ticket
	s.prompts = domainprompt.Clone(prompts)
	s.filtered = domainprompt.Filter(s.prompts, s.deferred)
	s.loading = false
	s.lastErr = ""
	snapshot := domainprompt.Clone(s.prompts)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Save(ctx, snapshot); err != nil {
			slog.Warn("snapshot cache save failed", "error", err)
		}
	}
}

func (s *Service) fail(action string, err error) {
	msg := fmt.Sprintf("Could not %s. Please try again.", action)
	if errors.Is(err, portprompt.ErrMisconfigured) {
		msg = portprompt.MisconfigurationMessage
	}
	slog.Error("prompt storage operation failed", "action", action, "error", err)

	s.mu.Lock()
	s.lastErr = msg
	s.loading = false
	s.mu.Unlock()
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, e); err != nil {
		slog.Warn("event publish failed", "type", e.Type, "error", err)
	}
}

func (s *Service) lookup(id string) (domainprompt.Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := domainprompt.Index(s.prompts, id)
	if i < 0 {
		return domainprompt.Prompt{}, false
	}
	return s.prompts[i], true
}
