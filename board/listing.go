package board

import (
	"slices"

	"github.com/nomis52/activityboard/activity"
)

// Card is the rendered form of one activity.
type Card struct {
	Name         string
	Description  string
	Schedule     string
	SpotsLeft    int
	Participants []string
}

// ParticipantCount is the number of signed up participants.
func (c Card) ParticipantCount() int {
	return len(c.Participants)
}

// Listing is everything the activities area and the selector show.
type Listing struct {
	Cards []Card
	// Options are the selector entries, the placeholder first.
	Options []string
	// Error replaces the cards when the collection could not be loaded.
	Error string
}

// Failed reports whether the collection could not be loaded.
func (l Listing) Failed() bool {
	return l.Error != ""
}

// ActivityOptions returns the selectable activity names without the placeholder.
func (l Listing) ActivityOptions() []string {
	if len(l.Options) == 0 {
		return nil
	}
	return l.Options[1:]
}

// NewListing builds the listing for c, keeping collection order.
func NewListing(c activity.Collection) Listing {
	l := Listing{
		Cards:   make([]Card, 0, c.Len()),
		Options: append([]string{PlaceholderOption}, c.Names()...),
	}

	for _, a := range c.All() {
		l.Cards = append(l.Cards, Card{
			Name:         a.Name,
			Description:  a.Description,
			Schedule:     a.Schedule,
			SpotsLeft:    a.SpotsLeft(),
			Participants: slices.Clone(a.Participants),
		})
	}
	return l
}
