// Package mood re-ranks candidates by how well their genres fit a requested
// mood.
package mood

import (
	"sort"
	"strings"

	d "github.com/tbourn/go-movie-matcher/internal/domain"
)

// Profile describes one canonical mood.
type Profile struct {
	Name        string
	Primary     []int
	Secondary   []int
	Description string
}

// Catalog holds the canonical moods and their informal aliases.
type Catalog struct {
	moods   map[string]Profile
	aliases map[string]string
}

// DefaultCatalog returns the built-in ten moods.
func DefaultCatalog() *Catalog {
	c := &Catalog{moods: map[string]Profile{}, aliases: map[string]string{}}
	for _, p := range []Profile{
		{"happy", []int{d.GenreComedy, d.GenreMusic, d.GenreAnimation}, []int{d.GenreFamily, d.GenreRomance}, "Uplifting, fun, and feel-good"},
		{"sad", []int{d.GenreDrama, d.GenreRomance}, []int{d.GenreHistory, d.GenreMusic}, "Emotional, moving, and cathartic"},
		{"excited", []int{d.GenreAction, d.GenreAdventure, d.GenreSciFi}, []int{d.GenreFantasy, d.GenreThriller}, "Thrilling, fast-paced, and energetic"},
		{"thoughtful", []int{d.GenreDrama, d.GenreDocumentary, d.GenreHistory}, []int{d.GenreMystery, d.GenreSciFi}, "Deep, intellectual, and contemplative"},
		{"scared", []int{d.GenreHorror, d.GenreThriller}, []int{d.GenreMystery, d.GenreSciFi}, "Scary, suspenseful, and intense"},
		{"relaxed", []int{d.GenreComedy, d.GenreRomance, d.GenreMusic}, []int{d.GenreAnimation, d.GenreFamily}, "Easy-going, comfortable, and pleasant"},
		{"adventurous", []int{d.GenreAdventure, d.GenreFantasy, d.GenreSciFi}, []int{d.GenreAction, d.GenreAnimation}, "Epic, imaginative, and escapist"},
		{"romantic", []int{d.GenreRomance, d.GenreComedy}, []int{d.GenreDrama, d.GenreMusic}, "Heartwarming, sweet, and charming"},
		{"nostalgic", []int{d.GenreDrama, d.GenreHistory, d.GenreFamily}, []int{d.GenreMusic, d.GenreAnimation}, "Classic, timeless, and sentimental"},
		{"energetic", []int{d.GenreAction, d.GenreAdventure, d.GenreComedy}, []int{d.GenreMusic, d.GenreSciFi}, "Dynamic, lively, and stimulating"},
	} {
		c.moods[p.Name] = p
	}
	for mood, aliases := range map[string][]string{
		"happy":       {"cheerful", "joyful", "upbeat", "positive"},
		"sad":         {"melancholy", "emotional", "tearjerker", "crying"},
		"excited":     {"pumped", "hyped", "thrilled", "intense"},
		"thoughtful":  {"contemplative", "philosophical", "deep", "intellectual"},
		"scared":      {"scary", "horror", "terrifying", "spooky"},
		"relaxed":     {"chill", "calm", "easy", "lazy"},
		"adventurous": {"epic", "fantasy", "exploring"},
		"romantic":    {"love", "date", "sweet"},
		"nostalgic":   {"classic", "retro", "old"},
		"energetic":   {"active", "fun", "wild"},
	} {
		for _, a := range aliases {
			c.aliases[a] = mood
		}
	}
	return c
}

// Resolve maps a mood or alias, case-insensitively, to its profile.
func (c *Catalog) Resolve(name string) (Profile, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := c.aliases[key]; ok {
		key = canonical
	}
	p, ok := c.moods[key]
	return p, ok
}

// Available lists the canonical moods sorted by name.
func (c *Catalog) Available() []Profile {
	out := make([]Profile, 0, len(c.moods))
	for _, p := range c.moods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Match scores how well genres fit p and returns the matching genre names,
// primary genres first.
func (p Profile) Match(genres []int) (float64, []string) {
	have := make(map[int]struct{}, len(genres))
	for _, g := range genres {
		have[g] = struct{}{}
	}
	var names []string
	overlap := func(set []int) float64 {
		if len(set) == 0 {
			return 0
		}
		n := 0
		for _, g := range set {
			if _, ok := have[g]; ok {
				n++
				names = append(names, d.GenreName(g))
			}
		}
		return float64(n) / float64(len(set))
	}
	score := 0.7*overlap(p.Primary) + 0.3*overlap(p.Secondary)
	return score, names
}
