package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/caphehouse/api/internal/domain"
	"github.com/caphehouse/api/internal/platform/debounce"
)

const (
	minSearchQueryLength = 3
	defaultSearchDelay   = 500 * time.Millisecond
)

var (
	// ErrAddressInvalidInput indicates the caller supplied invalid input.
	ErrAddressInvalidInput = errors.New("address selector: invalid input")
	// ErrAddressUnavailable indicates the address collaborators cannot be reached.
	ErrAddressUnavailable = errors.New("address selector: unavailable")
	// ErrAddressNotFound indicates the requested saved address does not exist.
	ErrAddressNotFound = errors.New("address selector: not found")

	errAddressBookRequired = errors.New("address selector: address book is required")
	errLocationsRequired   = errors.New("address selector: location resolver is required")
)

// AddressSelectorDeps wires the collaborators for address selection.
type AddressSelectorDeps struct {
	Addresses   AddressBook
	Locations   LocationResolver
	SearchDelay time.Duration
	Logger      func(context.Context, string, map[string]any)
}

type addressSelector struct {
	addresses AddressBook
	locations LocationResolver
	debouncer *debounce.Debouncer
	logger    func(context.Context, string, map[string]any)

	mu          sync.Mutex
	method      domain.DeliveryMethod
	selected    *domain.Address
	saved       []domain.Address
	suggestions []domain.Suggestion
	// searchSeq identifies the latest issued autocomplete; results carrying an
	// older sequence are discarded.
	searchSeq uint64
}

// NewAddressSelector constructs an AddressSelector starting in pickup mode.
func NewAddressSelector(deps AddressSelectorDeps) (AddressSelector, error) {
	if deps.Addresses == nil {
		return nil, errAddressBookRequired
	}
	if deps.Locations == nil {
		return nil, errLocationsRequired
	}

	delay := deps.SearchDelay
	if delay <= 0 {
		delay = defaultSearchDelay
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &addressSelector{
		addresses: deps.Addresses,
		locations: deps.Locations,
		debouncer: debounce.New(delay),
		logger:    logger,
		method:    domain.DeliveryMethodPickup,
	}, nil
}

// SetDeliveryMethod toggles the delivery method. Switching to pickup clears
// the selected address outright. Switching to delivery loads the user's saved
// addresses and returns them without auto-selecting, even when one is flagged
// as default.
func (s *addressSelector) SetDeliveryMethod(ctx context.Context, method domain.DeliveryMethod) ([]domain.Address, error) {
	if !domain.ValidDeliveryMethod(method) {
		return nil, fmt.Errorf("%w: unknown delivery method %q", ErrAddressInvalidInput, method)
	}

	if method == domain.DeliveryMethodPickup {
		s.mu.Lock()
		s.method = method
		s.selected = nil
		s.saved = nil
		s.mu.Unlock()
		return nil, nil
	}

	saved, err := s.addresses.ListAddresses(ctx)
	if err != nil {
		s.logger(ctx, "address.list_failed", map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrAddressUnavailable, err)
	}

	s.mu.Lock()
	s.method = method
	s.saved = saved
	s.mu.Unlock()
	return saved, nil
}

// SelectAddress picks a saved address by id, resolving through the address
// book when it is not in the loaded list.
func (s *addressSelector) SelectAddress(ctx context.Context, addressID string) (domain.Address, error) {
	id := strings.TrimSpace(addressID)
	if id == "" {
		return domain.Address{}, fmt.Errorf("%w: address id is required", ErrAddressInvalidInput)
	}

	s.mu.Lock()
	for _, addr := range s.saved {
		if strings.EqualFold(strings.TrimSpace(addr.ID), id) {
			dup := addr
			s.selected = &dup
			s.mu.Unlock()
			return addr, nil
		}
	}
	s.mu.Unlock()

	address, err := s.addresses.GetAddress(ctx, id)
	if err != nil {
		return domain.Address{}, fmt.Errorf("%w: %v", ErrAddressNotFound, err)
	}

	s.mu.Lock()
	dup := address
	s.selected = &dup
	s.mu.Unlock()
	return address, nil
}

// Search feeds a keystroke into the debounced autocomplete flow. Queries
// shorter than three characters cancel any pending lookup and clear the
// suggestions; longer queries schedule a lookup after the debounce delay,
// cancelling the previously scheduled one.
func (s *addressSelector) Search(ctx context.Context, query string) {
	trimmed := strings.TrimSpace(query)

	if len([]rune(trimmed)) < minSearchQueryLength {
		s.debouncer.Cancel()
		s.mu.Lock()
		s.searchSeq++
		s.suggestions = nil
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	s.debouncer.Trigger(func() {
		suggestions, err := s.locations.Autocomplete(ctx, trimmed)

		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.searchSeq {
			// A newer keystroke superseded this lookup.
			return
		}
		if err != nil {
			s.logger(ctx, "address.autocomplete_failed", map[string]any{
				"query": trimmed,
				"error": err.Error(),
			})
			s.suggestions = nil
			return
		}
		s.suggestions = suggestions
	})
}

// Suggestions returns the latest autocomplete results.
func (s *addressSelector) Suggestions() []domain.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := make([]domain.Suggestion, len(s.suggestions))
	copy(dup, s.suggestions)
	return dup
}

// ChooseSuggestion resolves a suggestion to exact coordinates, saves it to
// the address book, and records the saved address as the current selection.
// When the detail lookup fails the address text is still accepted with absent
// coordinates; the later fee computation degrades gracefully.
func (s *addressSelector) ChooseSuggestion(ctx context.Context, refID string, text string) (domain.Address, error) {
	ref := strings.TrimSpace(refID)
	addressText := strings.TrimSpace(text)
	if ref == "" || addressText == "" {
		return domain.Address{}, fmt.Errorf("%w: suggestion ref and text are required", ErrAddressInvalidInput)
	}

	address := domain.Address{AddressText: addressText}
	detail, err := s.locations.PlaceDetails(ctx, ref)
	if err != nil {
		s.logger(ctx, "address.place_details_failed", map[string]any{
			"refId": ref,
			"error": err.Error(),
		})
	} else {
		address.Latitude = detail.Latitude
		address.Longitude = detail.Longitude
	}

	created, err := s.addresses.CreateAddress(ctx, address)
	if err != nil {
		s.logger(ctx, "address.create_failed", map[string]any{
			"refId": ref,
			"error": err.Error(),
		})
		return domain.Address{}, fmt.Errorf("%w: %v", ErrAddressUnavailable, err)
	}

	s.mu.Lock()
	dup := created
	s.selected = &dup
	s.saved = append(s.saved, created)
	s.suggestions = nil
	s.mu.Unlock()
	return created, nil
}

// Method returns the current delivery method.
func (s *addressSelector) Method() domain.DeliveryMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

// Selected returns the chosen address, if any.
func (s *addressSelector) Selected() (domain.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return domain.Address{}, false
	}
	return *s.selected, true
}

// Close cancels any pending debounced lookup. Callers invoke it on teardown.
func (s *addressSelector) Close() {
	s.debouncer.Cancel()
}
