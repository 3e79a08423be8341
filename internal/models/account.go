package models

// TeacherAccount is a verified teacher identity resolved from the credential store.
type TeacherAccount struct {
	Username       string `json:"username"`
	Institution    string `json:"institution"`
	Department     string `json:"department"`
	DepartmentName string `json:"departmentName"`
}
