package content

import "time"

// Record represents one content row: a quote paired with a stored image.
type Record struct {
	ID            int
	Quote         string
	ImageFilename string
	CreatedAt     time.Time
}
