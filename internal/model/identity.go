package model

// Identity 当前请求的用户，由 IdentityService 从 token 还原
type Identity struct {
	ID       RemoteID `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Token    string   `json:"-"`
}
