package review

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidReview is returned for a review that breaks a stored-row invariant.
var ErrInvalidReview = errors.New("review: invalid")

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Validate checks that a labelled review can be stored: non-empty text,
// a rating in [1,5], a known sentiment label and a score in [0,1].
func (r Review) Validate() error {
	switch {
	case strings.TrimSpace(r.text) == "":
		return fmt.Errorf("%w: empty review text", ErrInvalidReview)
	case r.rating < MinRating || r.rating > MaxRating:
		return fmt.Errorf("%w: rating %d outside [%d,%d]", ErrInvalidReview, r.rating, MinRating, MaxRating)
	case !r.sentiment.Label.Valid():
		return fmt.Errorf("%w: sentiment label %q", ErrInvalidReview, r.sentiment.Label)
	case math.IsNaN(r.sentiment.Score) || r.sentiment.Score < 0 || r.sentiment.Score > 1:
		return fmt.Errorf("%w: sentiment score %v outside [0,1]", ErrInvalidReview, r.sentiment.Score)
	}
	return nil
}
