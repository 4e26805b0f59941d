package model

// Movie is the catalog record a screening refers to.  Only the fields the
// booking core reads are kept.
type Movie struct {
	ID              uint64 // movies.id
	Title           string // movies.title
	DurationMinutes int    // movies.duration_minutes
}
