package chat

// Origin classifies who authored an entry.
type Origin string

const (
	// Local entries are typed by the user of this client.
	Local Origin = "local"
	// Remote entries are produced by the backend.
	Remote Origin = "remote"
)

// TimeLayout is the display format of Entry.CreatedAt.
const TimeLayout = "15:04"

// Entry is one immutable record of the chat timeline.
type Entry struct {
	ID        uint64 `json:"id"`
	Origin    Origin `json:"origin"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

// IsLocal reports whether the entry was authored on this client.
func (e Entry) IsLocal() bool {
	return e.Origin == Local
}
