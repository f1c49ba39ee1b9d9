// Package venue resolves observed venue names to canonical venue rows.
//
// Resolution is match-first: known names and aliases win, unique postcodes
// rescue placeholders and unseen spellings, and only then is a new venue
// created. Unmatched names surface in scan logs so the seed data can be
// improved over time.
package venue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/domain/venues"
	"github.com/equiscan/server/internal/normalize"
)

// Match types, in descending confidence order.
const (
	MatchAlias    = "alias"
	MatchPrefix   = "prefix"
	MatchPostcode = "postcode"
	MatchNew      = "new"
)

var placeholderNames = map[string]bool{
	"tbc": true, "tba": true, "tbd": true,
	"various": true, "unknown": true,
}

// Match is the outcome of one Resolve call.
type Match struct {
	Venue *venues.Venue
	Type  string
}

// Matcher holds the in-memory venue index for one scan process. All lookups
// and the resolve-then-insert sequence run under one mutex, so concurrent
// scans cannot create the same venue twice through this instance.
type Matcher struct {
	repo      venues.Repository
	ambiguous map[string]bool
	logger    zerolog.Logger

	mu         sync.Mutex
	byAlias    map[string]int64
	byPostcode map[string][]int64
	byID       map[int64]*venues.Venue
	byPrefix   map[string][]int64 // queried prefix → ids of venues extending it, cached lazily
}

// NewMatcher builds a matcher over the repository. Ambiguous names are
// venue spellings shared by unrelated venues (from seed data); they never
// match by name alone.
func NewMatcher(repo venues.Repository, ambiguous []string, logger zerolog.Logger) *Matcher {
	amb := make(map[string]bool, len(ambiguous))
	for _, name := range ambiguous {
		amb[strings.ToLower(name)] = true
	}
	return &Matcher{
		repo:      repo,
		ambiguous: amb,
		logger:    logger,
	}
}

// Load populates the index from the database. Call once before the first
// Resolve; canonical venue names index as self-aliases.
func (m *Matcher) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading venues: %w", err)
	}
	aliases, err := m.repo.ListAliases(ctx)
	if err != nil {
		return fmt.Errorf("loading venue aliases: %w", err)
	}

	m.byAlias = make(map[string]int64, len(all)+len(aliases))
	m.byPostcode = make(map[string][]int64)
	m.byID = make(map[int64]*venues.Venue, len(all))
	m.byPrefix = nil

	for i := range all {
		v := all[i]
		m.byID[v.ID] = &v
		m.byAlias[strings.ToLower(v.Name)] = v.ID
		if v.Postcode != "" {
			pc := strings.ToUpper(strings.TrimSpace(v.Postcode))
			m.byPostcode[pc] = append(m.byPostcode[pc], v.ID)
		}
	}
	for _, a := range aliases {
		if _, taken := m.byAlias[strings.ToLower(a.Alias)]; !taken {
			m.byAlias[strings.ToLower(a.Alias)] = a.VenueID
		}
	}

	m.logger.Info().Int("venues", len(all)).Int("aliases", len(aliases)).
		Msg("venue index loaded")
	return nil
}

// Resolve maps a normalized venue name (and optional canonical postcode) to
// a venue, creating one when nothing matches. Placeholder names resolve only
// through their postcode; without one they land on the shared placeholder
// venue.
func (m *Matcher) Resolve(ctx context.Context, name, postcode string) (Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byAlias == nil {
		return Match{}, errors.New("venue index not loaded")
	}

	key := strings.ToLower(strings.TrimSpace(name))

	// Placeholders must not name-match a real venue.
	if placeholderNames[key] {
		if postcode != "" {
			if v := m.uniquePostcodeVenue(postcode); v != nil {
				return Match{Venue: v, Type: MatchPostcode}, nil
			}
		}
		return m.findOrCreate(ctx, normalize.TbcVenue, "", MatchNew)
	}

	// Exact alias match, skipped for ambiguous names arriving without a
	// postcode to confirm them.
	if !m.ambiguous[key] || postcode != "" {
		if id, ok := m.byAlias[key]; ok {
			return Match{Venue: m.byID[id], Type: MatchAlias}, nil
		}
	}

	// Unique prefix: "Allens Hill" resolves to "Allens Hill Competition
	// Centre" when exactly one venue name extends it, and "Eland Lodge
	// Horse Trials" resolves to "Eland Lodge" on the reverse direction.
	if v := m.uniquePrefixVenue(key); v != nil {
		return Match{Venue: v, Type: MatchPrefix}, nil
	}

	// Unique postcode: same place under a new spelling. Learn the spelling
	// as a runtime alias so the next scan matches directly.
	if postcode != "" {
		if v := m.uniquePostcodeVenue(postcode); v != nil {
			if err := m.repo.UpsertAlias(ctx, name, v.ID, "learned"); err != nil {
				return Match{}, fmt.Errorf("learning alias %q: %w", name, err)
			}
			m.byAlias[key] = v.ID
			m.logger.Info().Str("alias", name).Str("venue", v.Name).
				Msg("venue alias learned from postcode")
			return Match{Venue: v, Type: MatchPostcode}, nil
		}
	}

	return m.findOrCreate(ctx, name, postcode, MatchNew)
}

// findOrCreate inserts a venue, treating a unique-violation loss as "someone
// else created it" and re-reading the winner's row. An existing row found
// here still reports the caller's match type: reaching this path means the
// high-confidence matches were skipped or missed.
func (m *Matcher) findOrCreate(ctx context.Context, name, postcode, matchType string) (Match, error) {
	key := strings.ToLower(name)
	if id, ok := m.byAlias[key]; ok {
		return Match{Venue: m.byID[id], Type: matchType}, nil
	}

	v, err := m.repo.Create(ctx, name, postcode)
	if errors.Is(err, venues.ErrDuplicate) {
		v, err = m.repo.GetByName(ctx, name)
	}
	if err != nil {
		return Match{}, fmt.Errorf("creating venue %q: %w", name, err)
	}

	m.index(v)
	m.byPrefix = nil // stale once a name is added
	if name != normalize.TbcVenue {
		m.logger.Info().Str("venue", name).Str("postcode", postcode).
			Msg("new venue created")
	}
	return Match{Venue: v, Type: matchType}, nil
}

func (m *Matcher) index(v *venues.Venue) {
	m.byID[v.ID] = v
	m.byAlias[strings.ToLower(v.Name)] = v.ID
	if v.Postcode != "" {
		pc := strings.ToUpper(strings.TrimSpace(v.Postcode))
		m.byPostcode[pc] = append(m.byPostcode[pc], v.ID)
	}
}

func (m *Matcher) uniquePostcodeVenue(postcode string) *venues.Venue {
	ids := m.byPostcode[strings.ToUpper(strings.TrimSpace(postcode))]
	if len(ids) != 1 {
		return nil
	}
	return m.byID[ids[0]]
}

// uniquePrefixVenue resolves key against canonical names in both directions,
// word-aligned and unique-only. Forward: exactly one venue's name begins with
// key + " " (a short form of a longer canonical name). Reverse: exactly one
// venue's name is a prefix of key (an over-specific event title).
func (m *Matcher) uniquePrefixVenue(key string) *venues.Venue {
	if v := m.uniqueExtension(key); v != nil {
		return v
	}

	var found *venues.Venue
	for _, v := range m.byID {
		name := strings.ToLower(v.Name)
		if name == strings.ToLower(normalize.TbcVenue) || !strings.HasPrefix(key, name+" ") {
			continue
		}
		if found != nil {
			return nil // ambiguous
		}
		found = v
	}
	return found
}

// uniqueExtension returns the one venue whose canonical name begins with
// key + " ". Hits and misses are cached per queried prefix; the cache is
// dropped whenever a venue is created.
func (m *Matcher) uniqueExtension(key string) *venues.Venue {
	if m.byPrefix == nil {
		m.byPrefix = make(map[string][]int64)
	}
	ids, cached := m.byPrefix[key]
	if !cached {
		for id, v := range m.byID {
			if strings.HasPrefix(strings.ToLower(v.Name), key+" ") {
				ids = append(ids, id)
			}
		}
		m.byPrefix[key] = ids
	}
	if len(ids) != 1 {
		return nil
	}
	return m.byID[ids[0]]
}
