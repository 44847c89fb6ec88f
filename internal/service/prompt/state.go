package prompt

import (
	"fmt"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

// Get returns the prompt with the given id from the current collection.
func (s *Service) Get(id string) (domainprompt.Prompt, error) {
	p, ok := s.lookup(id)
	if !ok {
		return domainprompt.Prompt{}, fmt.Errorf("get prompt %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// Prompts returns the whole current collection.
func (s *Service) Prompts() []domainprompt.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domainprompt.Clone(s.prompts)
}

// Filtered returns the view derived from the collection and the deferred query.
// It may trail Query() by the search delay.
func (s *Service) Filtered() []domainprompt.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domainprompt.Clone(s.filtered)
}

// SetQuery records the raw query immediately and schedules the filtered view to
// catch up once input pauses.
func (s *Service) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()

	s.search.Trigger(s.applyQuery)
}

// applyQuery filters against the latest raw query, not the one that scheduled it.
func (s *Service) applyQuery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferred = s.query
	s.filtered = domainprompt.Filter(s.prompts, s.deferred)
}

func (s *Service) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Select marks a prompt of the current collection as selected.
func (s *Service) Select(id string) (domainprompt.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := domainprompt.Index(s.prompts, id)
	if i < 0 {
		return domainprompt.Prompt{}, fmt.Errorf("select prompt %s: %w", id, ErrNotFound)
	}
	s.selected = id
	return s.prompts[i], nil
}

func (s *Service) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// Selected resolves the selection against the current collection, so it always
// reflects the latest update and disappears once the prompt is gone.
func (s *Service) Selected() (domainprompt.Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedLocked()
}

func (s *Service) selectedLocked() (domainprompt.Prompt, bool) {
	if s.selected == "" {
		return domainprompt.Prompt{}, false
	}
	i := domainprompt.Index(s.prompts, s.selected)
	if i < 0 {
		return domainprompt.Prompt{}, false
	}
	return s.prompts[i], true
}

func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError is the displayable message of the last failed storage operation,
// or "" once a later operation succeeded.
func (s *Service) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Service) Backend() portprompt.Backend {
	return s.store.Backend()
}

func (s *Service) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		Prompts:  domainprompt.Clone(s.prompts),
		Filtered: domainprompt.Clone(s.filtered),
		Query:    s.query,
		Loading:  s.loading,
		Error:    s.lastErr,
		Backend:  s.store.Backend(),
	}
	v.BackendLabel = BackendLabel(v.Backend)
	if v.Backend == portprompt.BackendMisconfigured {
		v.Banner = portprompt.MisconfigurationMessage
	}
	if p, ok := s.selectedLocked(); ok {
		v.Selected = &p
	}
	return v
}

// BackendLabel is the user-facing name of a backend.
func BackendLabel(b portprompt.Backend) string {
	if b == portprompt.BackendRemote {
		return "Cloud Sync"
	}
	return "Local Only"
}
