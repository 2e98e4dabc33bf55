package domain

// StaffUser - строка таблицы staff_users в том виде, в котором её отдаёт HTTP API.
type StaffUser struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	MobPhone    string `json:"mob_phone"`
	AccessLevel string `json:"access_level"`
	Status      string `json:"status"`
	ACreated    string `json:"a_created"`
}
