package history

import (
	"fmt"
	"sort"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// Summary is a human-readable digest of a group's history.
type Summary struct {
	GroupID           string   `json:"group_id"`
	Sessions          int      `json:"sessions"`
	TopGenres         []int    `json:"top_genres,omitempty"`
	TopGenreNames     []string `json:"top_genre_names,omitempty"`
	TopCinemas        []string `json:"top_cinemas,omitempty"`
	MostSatisfiedUser string   `json:"most_satisfied_user,omitempty"`
	Message           string   `json:"message"`
}

// Summarize builds the Summary of h: the three most picked genres, the two
// most visited cinemas and the most satisfied member. Ties break by id or
// name.
func Summarize(h *domain.GroupHistory) Summary {
	s := Summary{GroupID: h.GroupID, Sessions: h.Preferences.SessionCount}
	if s.Sessions == 0 {
		s.Message = "This is your first movie night together!"
		return s
	}

	genres := make([]int, 0, len(h.Preferences.GenreCounts))
	for g := range h.Preferences.GenreCounts {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		ci, cj := h.Preferences.GenreCounts[genres[i]], h.Preferences.GenreCounts[genres[j]]
		if ci != cj {
			return ci > cj
		}
		return genres[i] < genres[j]
	})
	if len(genres) > 3 {
		genres = genres[:3]
	}
	s.TopGenres = genres
	for _, g := range genres {
		s.TopGenreNames = append(s.TopGenreNames, domain.GenreName(g))
	}

	cinemas := make([]string, 0, len(h.Preferences.CinemaCounts))
	for c := range h.Preferences.CinemaCounts {
		cinemas = append(cinemas, c)
	}
	sort.Slice(cinemas, func(i, j int) bool {
		ci, cj := h.Preferences.CinemaCounts[cinemas[i]], h.Preferences.CinemaCounts[cinemas[j]]
		if ci != cj {
			return ci > cj
		}
		return cinemas[i] < cinemas[j]
	})
	if len(cinemas) > 2 {
		cinemas = cinemas[:2]
	}
	s.TopCinemas = cinemas

	best := 0.0
	for u, v := range h.Preferences.UserSatisfaction {
		if s.MostSatisfiedUser == "" || v > best || (v == best && u < s.MostSatisfiedUser) {
			s.MostSatisfiedUser, best = u, v
		}
	}
	s.Message = fmt.Sprintf("You've had %d movie nights together!", s.Sessions)
	return s
}
