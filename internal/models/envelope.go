package models

// APIResponse is the legacy response envelope the dashboard expects
// from every REST endpoint.
type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data interface{}) *APIResponse {
	return &APIResponse{Code: 0, Message: "success", Data: data}
}

// Fail wraps an error message in a failure envelope.
func Fail(code int, message string) *APIResponse {
	return &APIResponse{Code: code, Message: message}
}

// GroupView is one entity group with the derived numeric ids of its
// members, in roster order.
type GroupView struct {
	Name    string  `json:"name"`
	Servers []int32 `json:"servers"`
}

// UserView is the current authenticated user as the dashboard expects
// it.
type UserView struct {
	ID       int32  `json:"id"`
	Username string `json:"username"`
	LoggedIn bool   `json:"logged_in"`
}

// SettingsView is the public settings/version blob shown in the footer.
type SettingsView struct {
	SiteName    string `json:"site_name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}
