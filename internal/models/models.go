package models

// User is the authenticated account as returned by /auth/me.
type User struct {
	ID                int64          `json:"id"`
	Email             string         `json:"email"`
	Name              string         `json:"name"`
	Age               int            `json:"age"`
	Bio               *string        `json:"bio,omitempty"`
	Gender            string         `json:"gender"`
	SeekingGender     string         `json:"seeking_gender,omitempty"`
	LocationLatitude  *float64       `json:"location_latitude,omitempty"`
	LocationLongitude *float64       `json:"location_longitude,omitempty"`
	Photos            []string       `json:"photos,omitempty"`
	Preferences       map[string]any `json:"preferences,omitempty"`
	IsActive          bool           `json:"is_active"`
	CreatedAt         Timestamp      `json:"created_at"`
	UpdatedAt         *Timestamp     `json:"updated_at,omitempty"`
}

// Clone returns a deep copy so callers never share slices with the session.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Photos != nil {
		c.Photos = append([]string(nil), u.Photos...)
	}
	if u.Preferences != nil {
		c.Preferences = make(map[string]any, len(u.Preferences))
		for k, v := range u.Preferences {
			c.Preferences[k] = v
		}
	}
	return &c
}

// ProfileUpdate is a partial profile mutation; nil fields are not sent.
type ProfileUpdate struct {
	Name              *string   `json:"name,omitempty" validate:"omitempty,min=1"`
	Age               *int      `json:"age,omitempty" validate:"omitempty,min=18,max=120"`
	Bio               *string   `json:"bio,omitempty"`
	Gender            *string   `json:"gender,omitempty" validate:"omitempty,min=1"`
	SeekingGender     *string   `json:"seeking_gender,omitempty"`
	LocationLatitude  *float64  `json:"location_latitude,omitempty" validate:"omitempty,latitude"`
	LocationLongitude *float64  `json:"location_longitude,omitempty" validate:"omitempty,longitude"`
	Photos            *[]string `json:"photos,omitempty" validate:"omitempty,max=6"`
}

// PhotoList wraps photos for ProfileUpdate so an empty list is still sent.
func PhotoList(photos []string) *[]string {
	out := append([]string{}, photos...)
	return &out
}

// RegisterData is the account creation payload.
type RegisterData struct {
	Email             string         `json:"email" validate:"required,email"`
	Password          string         `json:"password" validate:"required"`
	Name              string         `json:"name" validate:"required"`
	Age               int            `json:"age" validate:"required,min=18"`
	Bio               *string        `json:"bio,omitempty"`
	Gender            string         `json:"gender" validate:"required"`
	SeekingGender     string         `json:"seeking_gender,omitempty"`
	LocationLatitude  *float64       `json:"location_latitude,omitempty"`
	LocationLongitude *float64       `json:"location_longitude,omitempty"`
	Photos            []string       `json:"photos,omitempty"`
	Preferences       map[string]any `json:"preferences,omitempty"`
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Message is a single chat message.
type Message struct {
	ID           int64     `json:"id"`
	SenderID     int64     `json:"sender_id"`
	ReceiverID   int64     `json:"receiver_id"`
	Content      string    `json:"content"`
	IsRead       bool      `json:"is_read"`
	Timestamp    Timestamp `json:"timestamp"`
	SenderName   string    `json:"sender_name"`
	ReceiverName string    `json:"receiver_name"`
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	UserID          int64      `json:"user_id"`
	UserName        string     `json:"user_name"`
	LastMessage     *string    `json:"last_message,omitempty"`
	LastMessageTime *Timestamp `json:"last_message_time,omitempty"`
	UnreadCount     int        `json:"unread_count"`
}

// UserProfile is a discovery candidate.
type UserProfile struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Age               int      `json:"age"`
	Bio               *string  `json:"bio,omitempty"`
	Gender            string   `json:"gender"`
	LocationLatitude  *float64 `json:"location_latitude,omitempty"`
	LocationLongitude *float64 `json:"location_longitude,omitempty"`
	Photos            []string `json:"photos,omitempty"`
	PrimaryPhoto      *int     `json:"primary_photo,omitempty"`
	DistanceKm        *float64 `json:"distance_km,omitempty"`
}

// BrowseParams are the browse filters. MaxDistance is expressed in miles.
type BrowseParams struct {
	Skip        int
	Limit       int
	MinAge      int
	MaxAge      int
	Gender      string
	MaxDistance int
}

// BrowseResponse is one page of candidates.
type BrowseResponse struct {
	Users []UserProfile `json:"users"`
	Total int           `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
}

// Interaction types recorded by the backend.
const (
	InteractionLike = "like"
	InteractionPass = "pass"
)

// InteractionResponse is returned by like and pass.
type InteractionResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	TargetUserID    int64     `json:"target_user_id"`
	InteractionType string    `json:"interaction_type"`
	Timestamp       Timestamp `json:"timestamp"`
	TargetUserName  string    `json:"target_user_name"`
	IsMatch         bool      `json:"is_match,omitempty"`
}

// MatchResponse is a matched profile.
type MatchResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Bio       *string   `json:"bio,omitempty"`
	Photos    []string  `json:"photos,omitempty"`
	MatchedAt Timestamp `json:"matched_at"`
}

// UnmatchResponse confirms an unmatch.
type UnmatchResponse struct {
	Message string `json:"message"`
}

// SpinResponse is the result of one slot machine spin.
type SpinResponse struct {
	Success        bool         `json:"success"`
	Profile        *UserProfile `json:"profile,omitempty"`
	SpinsRemaining int          `json:"spins_remaining"`
	Message        string       `json:"message"`
}

// SpinStatus reports the remaining daily spins.
type SpinStatus struct {
	SpinsRemaining int       `json:"spins_remaining"`
	ResetsAt       Timestamp `json:"resets_at"`
}

// PhotosResponse is returned by the photo upload endpoint. Older backends
// answer with a single URL instead of the full list.
type PhotosResponse struct {
	Photos []string `json:"photos,omitempty"`
	URL    string   `json:"url,omitempty"`
}
