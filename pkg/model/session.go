package model

// User is the signed-in user supplied by the authentication collaborator.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// ViewID identifies the current view. The core stores it for display and
// never branches on it.
type ViewID string

// Audio is a transportable audio buffer.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Empty reports whether the buffer carries no data.
func (a *Audio) Empty() bool {
	return a == nil || len(a.Data) == 0
}
