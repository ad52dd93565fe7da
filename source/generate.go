// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package source

import (
	"fmt"
	"math/rand"

	"github.com/danielhkuo/moviepolls/models"
)

// Every poll of a genre asks about the same four aspects.
var genreOptions = map[string][]string{
	"Action":      {"Storyline", "Fight Scenes", "Acting", "Visual Effects"},
	"Comedy":      {"Dialogues", "Comic Timing", "Situations", "Lead Performance"},
	"Romance":     {"Chemistry", "Songs", "Story", "Climax"},
	"Sci-Fi":      {"Concept", "Visual Effects", "Technology Portrayal", "Story Depth"},
	"Horror":      {"Scare Factor", "Sound Design", "Story", "Visuals"},
	"Drama":       {"Acting", "Story", "Screenplay", "Music"},
	"Documentary": {"Information Depth", "Cinematography", "Research Quality", "Narration"},
}

var titleWords = []string{
	"Legacy", "Echoes", "Midnight", "Awakening", "Frontier",
	"Catalyst", "Resonance", "Pulse", "Odyssey", "Horizon",
}

// Generate builds n mock polls with ids poll-0..poll-(n-1). Initial
// TotalVotes equals the option sum; about 85% of polls are Active.
func Generate(n int, rng *rand.Rand) []models.PollRecord {
	polls := make([]models.PollRecord, 0, n)
	for i := 0; i < n; i++ {
		genre := models.Genres[rng.Intn(len(models.Genres))]
		labels, ok := genreOptions[genre]
		if !ok {
			labels = []string{"Option A", "Option B", "Option C", "Option D"}
		}

		options := make([]models.Option, len(labels))
		total := 0
		for idx, label := range labels {
			votes := rng.Intn(501)
			options[idx] = models.Option{
				ID:    fmt.Sprintf("opt-%d-%d", i, idx),
				Label: label,
				Votes: votes,
			}
			total += votes
		}

		status := models.StatusActive
		if rng.Float64() >= 0.85 {
			status = models.StatusClosed
		}

		polls = append(polls, models.PollRecord{
			ID:         fmt.Sprintf("poll-%d", i),
			Title:      fmt.Sprintf("%s %d", titleWords[rng.Intn(len(titleWords))], i+1),
			Genre:      genre,
			Status:     status,
			Options:    options,
			TotalVotes: total,
			Rating:     models.RoundRating(rng.Float64()*4 + 1),
		})
	}
	return polls
}
