package model

// Member is a person whose measurements are tracked. Optional fields are nil
// when unset and omitted from JSON.
type Member struct {
	ID           string  `json:"id,omitempty"`
	Name         *string `json:"name,omitempty"`
	Nickname     *string `json:"nickname,omitempty"`
	Sex          *int64  `json:"sex,omitempty"`
	Relationship *int64  `json:"relationship,omitempty"`
}
