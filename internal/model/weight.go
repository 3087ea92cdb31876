package model

// Weight is one measurement for a member. Times are seconds since the epoch.
type Weight struct {
	ID         string  `json:"id"`
	MemberID   string  `json:"member_id"`
	Value      float64 `json:"value"`
	CreateTime int64   `json:"create_time"`
	UpdateTime int64   `json:"update_time"`
}
