package models

// Profile holds the display fields owned by the user-profile collaborator.
type Profile struct {
	UserID            string `db:"user_id" json:"user_id"`
	Username          string `db:"username" json:"username"`
	ProfilePictureURL string `db:"profile_picture_url" json:"profile_picture_url,omitempty"`
	Description       string `db:"description" json:"description,omitempty"`
}

// PlaceholderProfile substitutes for an unresolvable user id so a single
// missing profile never fails a whole merge.
func PlaceholderProfile(userID string) Profile {
	return Profile{UserID: userID, Username: "Unknown user"}
}
