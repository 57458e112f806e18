package jikan

// Entity is a named MyAnimeList reference: a genre, studio, author and so on.
type Entity struct {
	MalID int    `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// Anime is the subset of the /anime/{id} resource the client exposes.
type Anime struct {
	MalID         int      `json:"mal_id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	Type          string   `json:"type"`
	Source        string   `json:"source"`
	Episodes      int      `json:"episodes"`
	Status        string   `json:"status"`
	Airing        bool     `json:"airing"`
	Duration      string   `json:"duration"`
	Rating        string   `json:"rating"`
	Score         float64  `json:"score"`
	ScoredBy      int      `json:"scored_by"`
	Rank          int      `json:"rank"`
	Popularity    int      `json:"popularity"`
	Synopsis      string   `json:"synopsis"`
	Season        string   `json:"season"`
	Year          int      `json:"year"`
	Studios       []Entity `json:"studios"`
	Genres        []Entity `json:"genres"`
}

// Manga is the subset of the /manga/{id} resource the client exposes.
type Manga struct {
	MalID         int      `json:"mal_id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	Type          string   `json:"type"`
	Chapters      int      `json:"chapters"`
	Volumes       int      `json:"volumes"`
	Status        string   `json:"status"`
	Publishing    bool     `json:"publishing"`
	Score         float64  `json:"score"`
	ScoredBy      int      `json:"scored_by"`
	Rank          int      `json:"rank"`
	Popularity    int      `json:"popularity"`
	Synopsis      string   `json:"synopsis"`
	Authors       []Entity `json:"authors"`
	Genres        []Entity `json:"genres"`
}

// Character is the subset of the /characters/{id} resource the client exposes.
type Character struct {
	MalID     int      `json:"mal_id"`
	URL       string   `json:"url"`
	Name      string   `json:"name"`
	NameKanji string   `json:"name_kanji"`
	Nicknames []string `json:"nicknames"`
	Favorites int      `json:"favorites"`
	About     string   `json:"about"`
}

// Pagination describes a page of list results.
type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	CurrentPage     int  `json:"current_page"`
	Items           struct {
		Count   int `json:"count"`
		Total   int `json:"total"`
		PerPage int `json:"per_page"`
	} `json:"items"`
}

// AnimeSearch is one page of /anime search results.
type AnimeSearch struct {
	Data       []Anime    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// envelope is the {"data": ...} wrapper around single resources.
type envelope[T any] struct {
	Data T `json:"data"`
}
