package domain

import "strconv"

// TMDb genre ids used by the mood catalog and the history summaries.
const (
	GenreAction      = 28
	GenreAdventure   = 12
	GenreAnimation   = 16
	GenreComedy      = 35
	GenreCrime       = 80
	GenreDocumentary = 99
	GenreDrama       = 18
	GenreFamily      = 10751
	GenreFantasy     = 14
	GenreHistory     = 36
	GenreHorror      = 27
	GenreMusic       = 10402
	GenreMystery     = 9648
	GenreRomance     = 10749
	GenreSciFi       = 878
	GenreTVMovie     = 10770
	GenreThriller    = 53
	GenreWar         = 10752
	GenreWestern     = 37
)

// GenreNames maps TMDb genre ids to display names.
var GenreNames = map[int]string{
	GenreAction:      "Action",
	GenreAdventure:   "Adventure",
	GenreAnimation:   "Animation",
	GenreComedy:      "Comedy",
	GenreCrime:       "Crime",
	GenreDocumentary: "Documentary",
	GenreDrama:       "Drama",
	GenreFamily:      "Family",
	GenreFantasy:     "Fantasy",
	GenreHistory:     "History",
	GenreHorror:      "Horror",
	GenreMusic:       "Music",
	GenreMystery:     "Mystery",
	GenreRomance:     "Romance",
	GenreSciFi:       "Science Fiction",
	GenreTVMovie:     "TV Movie",
	GenreThriller:    "Thriller",
	GenreWar:         "War",
	GenreWestern:     "Western",
}

// GenreName returns the display name for id, or "Genre <id>" when unknown.
func GenreName(id int) string {
	if n, ok := GenreNames[id]; ok {
		return n
	}
	return "Genre " + strconv.Itoa(id)
}
